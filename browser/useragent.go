package browser

import (
	"fmt"
	"math/rand/v2"
)

var desktopPlatforms = []string{
	"Windows NT 10.0; Win64; x64",
	"Macintosh; Intel Mac OS X 10_15_7",
	"X11; Linux x86_64",
}

// Chrome majors that are current enough not to stand out.
const (
	minChromeMajor = 124
	maxChromeMajor = 134
)

// RandomUserAgent returns a plausible desktop Chrome user-agent string.
func RandomUserAgent() string {
	platform := desktopPlatforms[rand.IntN(len(desktopPlatforms))]
	major := minChromeMajor + rand.IntN(maxChromeMajor-minChromeMajor+1)
	return fmt.Sprintf(
		"Mozilla/5.0 (%s) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%d.0.%d.%d Safari/537.36",
		platform, major, 6000+rand.IntN(900), rand.IntN(200),
	)
}
