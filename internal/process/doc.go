// Package process tears down headless browser process trees left behind by
// the Chrome launcher.
package process
