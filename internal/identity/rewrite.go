package identity

import (
	"fmt"
	"net/url"
)

// RewriteActionLink turns a provider-issued verification URL into an
// application-controlled callback URL, so the sign-in email can be branded
// instead of using the provider's template.
//
// The provider link looks like
//
//	{provider}/auth/v1/verify?token=…&type=magiclink&redirect_to=…
//
// The token is lifted out and re-embedded in
//
//	{siteURL}/auth/callback?token=…&type=magiclink&returnTo=…
//
// returnTo, when present on the original destination, survives unchanged.
// A link without a token is an internal invariant violation.
func RewriteActionLink(actionLink, siteURL, returnTo string) (string, error) {
	parsed, err := url.Parse(actionLink)
	if err != nil {
		return "", fmt.Errorf("parsing action link: %w", err)
	}

	query := parsed.Query()
	token := query.Get("token")
	if token == "" {
		return "", fmt.Errorf("action link is missing its token")
	}

	if returnTo == "" {
		// The provider's redirect target may itself carry a returnTo from the
		// original destination URL.
		if redirectTo := query.Get("redirect_to"); redirectTo != "" {
			if nested, err := url.Parse(redirectTo); err == nil {
				returnTo = nested.Query().Get("returnTo")
			}
		}
	}

	callback := url.Values{}
	callback.Set("token", token)
	callback.Set("type", "magiclink")
	if returnTo != "" {
		callback.Set("returnTo", returnTo)
	}

	return siteURL + "/auth/callback?" + callback.Encode(), nil
}
