package classify

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/couchcryptid/geomonitor-etl/internal/domain"
)

var (
	showRe       = regexp.MustCompile(`show\s*[=:]\s*(true|false)`)
	topicRe      = regexp.MustCompile(`topic\s*[=:]\s*([a-z]+)`)
	importanceRe = regexp.MustCompile(`importance\s*[=:]\s*(\d+)`)
)

// ParseReply extracts a classification from free-form model output of the
// shape "show=<bool>; topic=<token>; importance=<digit>". Each field falls
// back to its default independently: show=true, topic=other, importance=2.
func ParseReply(text string) domain.Classification {
	out := domain.DefaultClassification()
	lowered := strings.ToLower(text)

	if m := showRe.FindStringSubmatch(lowered); m != nil {
		out.Show = m[1] == "true"
	}
	if m := topicRe.FindStringSubmatch(lowered); m != nil {
		if topic, ok := domain.ParseTopic(m[1]); ok {
			out.Topic = topic
		}
	}
	if m := importanceRe.FindStringSubmatch(lowered); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= domain.ImportanceMin && n <= domain.ImportanceMax {
			out.Importance = n
		}
	}
	return out
}
