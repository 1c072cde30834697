package emitter

import (
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v6"
)

// Generator produces plausible event payloads and context snapshots.
// Seeded so a scenario run is reproducible.
type Generator struct {
	faker *gofakeit.Faker
}

// NewGenerator creates a seeded generator. Seed 0 picks a random seed.
func NewGenerator(seed uint64) *Generator {
	return &Generator{faker: gofakeit.New(int64(seed))}
}

// Payload builds a payload for the given collection.
func (g *Generator) Payload(collection string) map[string]interface{} {
	switch strings.ToUpper(collection) {
	case "PAGEVIEW":
		return map[string]interface{}{
			"path":     fmt.Sprintf("/%s/%s", g.faker.Word(), g.faker.Word()),
			"title":    g.faker.Sentence(4),
			"referrer": g.faker.URL(),
		}
	case "PING":
		return map[string]interface{}{
			"uptime_ms": g.faker.Number(1000, 3600000),
		}
	case "ENROLLMENT":
		return map[string]interface{}{
			"account": g.faker.Email(),
			"plan":    g.faker.RandomString([]string{"free", "standard", "premium"}),
		}
	default:
		return map[string]interface{}{
			"value": g.faker.Word(),
		}
	}
}

// Snapshot implements the pipeline's context provider: a browser-like
// environment snapshot.
func (g *Generator) Snapshot() map[string]interface{} {
	return map[string]interface{}{
		"user_agent": g.faker.UserAgent(),
		"locale":     g.faker.LanguageAbbreviation(),
		"timezone":   g.faker.TimeZoneRegion(),
		"viewport": map[string]interface{}{
			"width":  g.faker.Number(320, 3840),
			"height": g.faker.Number(480, 2160),
		},
	}
}
