package fetcher

import (
	"math/rand"
	"strings"
	"sync"
	"time"
)

// DefaultUserAgent identifies the extractor honestly to the sites it reads.
const DefaultUserAgent = "Mozilla/5.0 (compatible; HistoryMapBot/1.0)"

type UserAgentType string

const (
	UserAgentBot     UserAgentType = "bot"
	UserAgentAuto    UserAgentType = "auto"
	UserAgentChrome  UserAgentType = "chrome"
	UserAgentFirefox UserAgentType = "firefox"
	UserAgentSafari  UserAgentType = "safari"
	UserAgentEdge    UserAgentType = "edge"
)

var userAgents = map[UserAgentType][]string{
	UserAgentChrome: {
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	},
	UserAgentFirefox: {
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 14.1; rv:121.0) Gecko/20100101 Firefox/121.0",
		"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
	},
	UserAgentSafari: {
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_1_2) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
		"Mozilla/5.0 (iPhone; CPU iPhone OS 17_1_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1",
	},
	UserAgentEdge: {
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
	},
}

type UserAgentSelector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewUserAgentSelector() *UserAgentSelector {
	return &UserAgentSelector{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// GetUserAgent returns a user agent string for the given type.
// Empty or "bot" yields DefaultUserAgent, "auto" picks any browser agent,
// a browser name picks one of that browser's agents, and anything else is
// returned as-is.
func (uas *UserAgentSelector) GetUserAgent(uaType string) string {
	normalized := strings.ToLower(strings.TrimSpace(uaType))

	switch UserAgentType(normalized) {
	case "", UserAgentBot:
		return DefaultUserAgent
	case UserAgentAuto:
		return uas.getRandomFromAll()
	case UserAgentChrome, UserAgentFirefox, UserAgentSafari, UserAgentEdge:
		return uas.getRandomFromType(UserAgentType(normalized))
	default:
		return strings.TrimSpace(uaType)
	}
}

func (uas *UserAgentSelector) getRandomFromAll() string {
	var all []string
	for _, agents := range userAgents {
		all = append(all, agents...)
	}
	return uas.pick(all)
}

func (uas *UserAgentSelector) getRandomFromType(uaType UserAgentType) string {
	agents, ok := userAgents[uaType]
	if !ok || len(agents) == 0 {
		return uas.getRandomFromAll()
	}
	return uas.pick(agents)
}

// pick guards the shared rand source; *rand.Rand is not safe for concurrent use.
func (uas *UserAgentSelector) pick(agents []string) string {
	if len(agents) == 0 {
		return DefaultUserAgent
	}
	uas.mu.Lock()
	defer uas.mu.Unlock()
	return agents[uas.rng.Intn(len(agents))]
}
