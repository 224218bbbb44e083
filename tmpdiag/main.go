package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"gradeway-backend/lib/cookiejar"
	"gradeway-backend/lib/scrapers/moe"
	"gradeway-backend/test/fakeupstream"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
)

func main() {
	s := fakeupstream.New(fakeupstream.Options{
		Users: []fakeupstream.User{{Username: "123456789", Password: "hunter2"}},
	})
	defer s.Close()

	client, err := moe.NewClient(moe.ClientOptions{
		PortalURL:      s.IdP.URL + "/",
		TriggerURL:     s.IdP.URL + "/applications/loginMOENew/default.aspx",
		RequestTimeout: 5 * time.Second,
		FlowTimeout:    10 * time.Second,
	})
	if err != nil {
		panic(err)
	}
	res, err := client.Login(context.Background(), "123456789", "hunter2")
	fmt.Println("real Login:", res, err)

	// hand-rolled replica of the follow client
	jar, _ := cookiejar.New()
	follow := resty.New()
	follow.SetCookieJar(jar)
	follow.SetHeader("user-agent", moe.BrowserUserAgent)
	follow.SetTimeout(5 * time.Second)
	follow.SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))
	follow.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(follow.GetClient().Transport)

	r1, err := follow.R().Get(s.IdP.URL + "/")
	fmt.Println("bootstrap:", r1.StatusCode(), err)
	r2, err := follow.R().Get(s.IdP.URL + "/applications/loginMOENew/default.aspx")
	fmt.Println("trigger:", r2.StatusCode(), err, r2.RawResponse.Request.URL)
	r3, err := follow.R().Post(s.IdP.URL + "/nidp/wsfed/interstitial")
	fmt.Println("autosubmit:", r3.StatusCode(), err, r3.RawResponse.Request.URL)
	r4, err := follow.R().
		SetFormData(map[string]string{
			"option": "credential", "isAjax": "true",
			"HIN_USERID": "123456789", "Ecom_Password": "hunter2",
			"g-recaptcha-response": "",
		}).
		Post(s.IdP.URL + "/nidp/wsfed/ep?sid=0&sid=0")
	fmt.Println("ajax:", r4.StatusCode(), err, string(r4.Body()))
	noRd := resty.New()
	noRd.SetCookieJar(jar)
	noRd.SetHeader("user-agent", moe.BrowserUserAgent)
	noRd.SetTimeout(5 * time.Second)
	noRd.SetRedirectPolicy(resty.RedirectPolicyFunc(func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}))
	noRd.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(noRd.GetClient().Transport)
	r5, err := noRd.R().
		SetFormData(map[string]string{"option": "credential"}).
		Post(s.IdP.URL + "/nidp/wsfed/ep/login")
	fmt.Println("finalize:", r5.StatusCode(), err)
	r6, err := follow.R().Get(s.IdP.URL + "/nidp/wsfed/ep?sid=0")
	fmt.Println("assertion:", r6.StatusCode(), err, string(r6.Body()))
}
