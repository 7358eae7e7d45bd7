package launch

import (
	"net/url"
	"regexp"
	"strings"
)

const (
	privateMarker  = "vip:"
	maxDecodeDepth = 8
)

// Parameter names a private server code may hide under, in lookup order.
var codeParams = []string{"privateServerLinkCode", "linkCode", "accessCode", "code"}

var (
	paramPattern   = regexp.MustCompile(`(?i)(?:^|[?&#;\s])([a-z]+)=([^&#;\s]+)`)
	shareURLRe     = regexp.MustCompile(`(?i)/share(?:-links)?\b`)
	shareCodeRe    = regexp.MustCompile(`^[0-9a-fA-F]{32}$`)
	accessCodeRe   = regexp.MustCompile(`^[0-9A-Za-z]+(?:-[0-9A-Za-z]+){4}$`)
	placeInPathRe  = regexp.MustCompile(`(?i)/games/(\d+)`)
	placeInParamRe = regexp.MustCompile(`(?i)[?&]placeId=(\d+)`)
)

// Job is a normalized destination, not yet resolved against the web API.
type Job struct {
	// Raw is the destination after marker stripping and percent-decoding.
	Raw           string
	JobID         string
	PrivateServer bool
	Code          string
	// ShareLink is set when Code came out of a share URL.
	ShareLink bool
}

// ResolveJob normalizes a raw destination spec. An explicit code wins over
// one embedded in raw. A private join with nothing to resolve is downgraded
// to a public join.
func ResolveJob(raw string, private bool, code string) Job {
	spec := strings.TrimSpace(raw)
	if len(spec) >= len(privateMarker) && strings.EqualFold(spec[:len(privateMarker)], privateMarker) {
		spec = strings.TrimSpace(spec[len(privateMarker):])
		private = true
	}
	spec = decodeRecursive(spec)

	job := Job{Raw: spec, PrivateServer: private}

	explicit := decodeRecursive(strings.TrimSpace(code))
	switch {
	case explicit != "" && strings.ContainsAny(explicit, "=/"):
		if extracted, ok := extractCode(explicit); ok {
			job.Code = extracted
			job.ShareLink = shareURLRe.MatchString(explicit)
		} else {
			job.Code = explicit
		}
	case explicit != "":
		job.Code = explicit
	default:
		if extracted, ok := extractCode(spec); ok {
			job.Code = extracted
			job.ShareLink = shareURLRe.MatchString(spec)
		}
	}

	if job.Code == "" && job.PrivateServer {
		if spec == "" {
			job.PrivateServer = false
		} else {
			job.Code = spec
		}
	}

	if job.Code == "" && !job.PrivateServer && !strings.ContainsAny(spec, "/?=") {
		job.JobID = spec
	}

	return job
}

func extractCode(spec string) (string, bool) {
	if spec == "" {
		return "", false
	}

	found := map[string]string{}
	for _, match := range paramPattern.FindAllStringSubmatch(spec, -1) {
		name := strings.ToLower(match[1])
		if _, ok := found[name]; !ok {
			found[name] = match[2]
		}
	}

	for _, name := range codeParams {
		if value, ok := found[strings.ToLower(name)]; ok {
			value = decodeRecursive(value)
			if value != "" {
				return value, true
			}
		}
	}

	return "", false
}

// decodeRecursive percent-decodes until the value stops changing.
func decodeRecursive(value string) string {
	for i := 0; i < maxDecodeDepth; i++ {
		decoded, err := url.PathUnescape(value)
		if err != nil || decoded == value {
			return value
		}
		value = decoded
	}
	return value
}

func looksLikeAccessCode(code string) bool {
	return accessCodeRe.MatchString(code)
}

func looksLikeShareCode(code string) bool {
	return shareCodeRe.MatchString(code)
}

// embeddedPlaceID returns a place id carried by a destination URL.
func embeddedPlaceID(values ...string) (int64, bool) {
	for _, value := range values {
		for _, re := range []*regexp.Regexp{placeInPathRe, placeInParamRe} {
			match := re.FindStringSubmatch(value)
			if match == nil {
				continue
			}
			id, ok := parsePositive(match[1])
			if ok {
				return id, true
			}
		}
	}
	return 0, false
}
