package shell

import (
	"embed"
	"strings"
)

//go:embed helptext
var helptext embed.FS

func usage() string {
	dat, err := helptext.ReadFile("helptext/usage.txt")
	if err != nil {
		return "Error loading helptext: " + err.Error()
	}
	return strings.TrimRight(string(dat), "\n")
}

func usageTopic(topic string) string {
	dat, err := helptext.ReadFile("helptext/" + topic + ".txt")
	if err != nil {
		return "There is no help text for the topic " + topic
	}
	return strings.TrimRight(string(dat), "\n")
}
