package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowSetupGuide explains where the four OAuth values come from
func ShowSetupGuide(w io.Writer) {
	line := strings.Repeat("=", 72)

	fmt.Fprintln(w, line)
	fmt.Fprintln(w, "TWITTER API CREDENTIALS")
	fmt.Fprintln(w, line)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "tweetvault signs its requests with OAuth 1.0a user context.")
	fmt.Fprintln(w, "You need four values from a Twitter developer app:")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  1. Open https://developer.twitter.com/en/portal/projects-and-apps")
	fmt.Fprintln(w, "  2. Select your app, then 'Keys and tokens'")
	fmt.Fprintln(w, "  3. Copy the API Key and API Key Secret (consumer key and secret)")
	fmt.Fprintln(w, "  4. Generate an Access Token and Secret with read permission")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Bookmarks need an app with access to the v2 bookmarks endpoint.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "The values are stored in the system keychain when one is available,")
	fmt.Fprintln(w, "otherwise in an encrypted file in your config directory. They can")
	fmt.Fprintf(w, "also be supplied through %s, %s,\n", EnvConsumerKey, EnvConsumerSecret)
	fmt.Fprintf(w, "%s and %s.\n", EnvAccessToken, EnvAccessSecret)
	fmt.Fprintln(w, line)
	fmt.Fprintln(w)
}
