// Package method provides brewing method source implementations.
package method

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chu3/brewpilot/internal/domain"
	"github.com/chu3/brewpilot/internal/logger"
)

// Compile-time interface check.
var _ domain.MethodSource = (*MemorySource)(nil)

// MemorySource holds methods in memory. Safe for concurrent reads.
type MemorySource struct {
	mu      sync.RWMutex
	methods map[string]*domain.Method
	log     *logger.Logger
}

// NewMemorySource creates a method source preloaded with built-in methods.
func NewMemorySource(log *logger.Logger) *MemorySource {
	src := &MemorySource{
		methods: make(map[string]*domain.Method),
		log:     log,
	}
	src.seed()
	return src
}

// Add registers an extra method, typically one loaded from a user file.
// Adding over an existing ID fails rather than silently replacing a
// built-in.
func (s *MemorySource) Add(m *domain.Method) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.methods[m.ID]; ok {
		return domain.ErrAlreadyExists
	}
	s.methods[m.ID] = m
	s.log.Info("method added: %s", m.Name)
	return nil
}

// List returns summaries of all available methods.
func (s *MemorySource) List(ctx context.Context) ([]domain.MethodSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	s.log.Debug("listing all methods, count=%d", len(s.methods))

	out := make([]domain.MethodSummary, 0, len(s.methods))
	for _, m := range s.methods {
		out = append(out, domain.MethodSummary{
			ID:          m.ID,
			Name:        m.Name,
			Description: m.Description,
			Tags:        m.Tags,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Get returns a method by ID.
func (s *MemorySource) Get(ctx context.Context, id string) (*domain.Method, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.methods[id]
	if !ok {
		s.log.Debug("method not found: %s", id)
		return nil, domain.ErrNotFound
	}
	return m, nil
}

// Search returns methods whose name, description or tags contain the
// query string.
func (s *MemorySource) Search(ctx context.Context, query string) ([]domain.MethodSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(query)
	s.log.Debug("searching methods for: %s", q)

	var out []domain.MethodSummary
	for _, m := range s.methods {
		if s.matches(m, q) {
			out = append(out, domain.MethodSummary{
				ID:          m.ID,
				Name:        m.Name,
				Description: m.Description,
				Tags:        m.Tags,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemorySource) matches(m *domain.Method, query string) bool {
	if strings.Contains(strings.ToLower(m.Name), query) {
		return true
	}
	if strings.Contains(strings.ToLower(m.Description), query) {
		return true
	}
	for _, tag := range m.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			return true
		}
	}
	return false
}

// seed populates the source with built-in methods.
func (s *MemorySource) seed() {
	methods := []*domain.Method{
		s.v60Simple(),
		s.v60ThreePour(),
		s.kasuya46(),
		s.cleverDripper(),
		s.hoffmannSwirl(),
	}
	for _, m := range methods {
		s.methods[m.ID] = m
	}
	s.log.Debug("seeded %d methods", len(methods))
}

func (s *MemorySource) v60Simple() *domain.Method {
	return &domain.Method{
		ID:          "v60-simple",
		Name:        "V60 Single Pour",
		Description: "One bloom, one long pour. The least fussy V60 there is -- good for half-awake mornings.",
		Params: domain.BrewParams{
			CoffeeGrams: 15,
			WaterGrams:  250,
			Ratio:       "1:16.7",
			Grind:       "medium-fine",
			TempCelsius: 96,
		},
		Tags: []string{"v60", "pour-over", "easy", "quick"},
		Stages: []domain.Stage{
			{
				Label:  "Bloom",
				Time:   45 * time.Second,
				Water:  "50g",
				Detail: "Wet all the grounds and give the brewer a gentle swirl.",
			},
			{
				Label:    "Main pour",
				Time:     2*time.Minute + 30*time.Second,
				Water:    "250g",
				PourTime: durPtr(60 * time.Second),
				Detail:   "Pour in slow circles from the center outward, then let it draw down.",
				PourType: "circular",
			},
		},
		Version: 1,
	}
}

func (s *MemorySource) v60ThreePour() *domain.Method {
	return &domain.Method{
		ID:          "v60-three-pour",
		Name:        "V60 Three Pour",
		Description: "Bloom plus two staged pours. More agitation, more sweetness, a touch more attention required.",
		Params: domain.BrewParams{
			CoffeeGrams: 20,
			WaterGrams:  300,
			Ratio:       "1:15",
			Grind:       "medium-fine",
			TempCelsius: 94,
		},
		Tags: []string{"v60", "pour-over", "staged"},
		Stages: []domain.Stage{
			{
				Label:  "Bloom",
				Time:   40 * time.Second,
				Water:  "60g",
				Detail: "Saturate the bed evenly. Swirl once.",
			},
			{
				Label:    "Second pour",
				Time:     1*time.Minute + 30*time.Second,
				Water:    "180g",
				PourTime: durPtr(30 * time.Second),
				Detail:   "Steady spiral to 180g, keeping the water level stable.",
				PourType: "spiral",
			},
			{
				Label:    "Final pour",
				Time:     3 * time.Minute,
				Water:    "300g",
				PourTime: durPtr(30 * time.Second),
				Detail:   "Top up to 300g, then wait for full drawdown.",
				PourType: "spiral",
			},
		},
		Version: 1,
	}
}

func (s *MemorySource) kasuya46() *domain.Method {
	return &domain.Method{
		ID:          "kasuya-4-6",
		Name:        "Kasuya 4:6",
		Description: "Tetsu Kasuya's five-pour method: the first 40% of water sets sweetness and acidity, the last 60% sets strength.",
		Params: domain.BrewParams{
			CoffeeGrams: 20,
			WaterGrams:  300,
			Ratio:       "1:15",
			Grind:       "coarse",
			TempCelsius: 92,
		},
		Tags: []string{"v60", "pour-over", "kasuya", "competition"},
		Stages: []domain.Stage{
			{
				Label:  "First pour",
				Time:   45 * time.Second,
				Water:  "60g",
				Detail: "First of the 40%: controls sweetness.",
			},
			{
				Label:  "Second pour",
				Time:   1*time.Minute + 30*time.Second,
				Water:  "120g",
				Detail: "Second of the 40%: controls acidity.",
			},
			{
				Label:  "Third pour",
				Time:   2*time.Minute + 15*time.Second,
				Water:  "180g",
				Detail: "Start of the 60%: strength pours begin.",
			},
			{
				Label:  "Fourth pour",
				Time:   3 * time.Minute,
				Water:  "240g",
				Detail: "Keep each pour the same size and rhythm.",
			},
			{
				Label:  "Fifth pour",
				Time:   3*time.Minute + 45*time.Second,
				Water:  "300g",
				Detail: "Last pour. Aim to finish drawdown by 3:30 of brew time.",
			},
		},
		Version: 1,
	}
}

func (s *MemorySource) cleverDripper() *domain.Method {
	return &domain.Method{
		ID:          "clever-dripper",
		Name:        "Clever Dripper",
		Description: "Immersion with a valve: steep everything, then release. Forgiving of grind and pour technique.",
		Params: domain.BrewParams{
			CoffeeGrams: 18,
			WaterGrams:  270,
			Ratio:       "1:15",
			Grind:       "medium",
			TempCelsius: 95,
		},
		Tags: []string{"clever", "immersion", "easy", "forgiving"},
		Stages: []domain.Stage{
			{
				Label:       "Fill",
				Time:        30 * time.Second,
				Water:       "270g",
				PourTime:    durPtr(30 * time.Second),
				Detail:      "Valve closed. Pour all the water in one go, grounds on top.",
				ValveStatus: "closed",
			},
			{
				Label:       "Steep",
				Time:        2*time.Minute + 30*time.Second,
				Water:       "270g",
				PourTime:    durPtr(0),
				Detail:      "Lid on. Let it steep undisturbed.",
				ValveStatus: "closed",
			},
			{
				Label:       "Drain",
				Time:        4 * time.Minute,
				Water:       "270g",
				PourTime:    durPtr(0),
				Detail:      "Set the dripper on your cup to open the valve and drain.",
				ValveStatus: "open",
			},
		},
		Version: 1,
	}
}

func (s *MemorySource) hoffmannSwirl() *domain.Method {
	return &domain.Method{
		ID:          "v60-swirl",
		Name:        "V60 Bloom & Swirl",
		Description: "Two pours with deliberate swirl steps in between to flatten the bed. No pouring during the swirls.",
		Params: domain.BrewParams{
			CoffeeGrams: 30,
			WaterGrams:  500,
			Ratio:       "1:16.7",
			Grind:       "medium-fine",
			TempCelsius: 95,
		},
		Tags: []string{"v60", "pour-over", "swirl"},
		Stages: []domain.Stage{
			{
				Label:  "Bloom",
				Time:   45 * time.Second,
				Water:  "100g",
				Detail: "Saturate and swirl until the slurry is even.",
			},
			{
				Label:    "First pour",
				Time:     1*time.Minute + 45*time.Second,
				Water:    "300g",
				PourTime: durPtr(30 * time.Second),
				Detail:   "Pour to 60% of total weight, aiming for 1:15 on the clock.",
				PourType: "circular",
			},
			{
				Label:    "Stir",
				Time:     2 * time.Minute,
				Water:    "300g",
				PourTime: durPtr(0),
				Detail:   "One stir each direction with a spoon. No water.",
				PourType: "stir",
			},
			{
				Label:    "Second pour",
				Time:     3 * time.Minute,
				Water:    "500g",
				PourTime: durPtr(30 * time.Second),
				Detail:   "Top up to full weight in slow circles.",
				PourType: "circular",
			},
			{
				Label:    "Swirl",
				Time:     3*time.Minute + 15*time.Second,
				Water:    "500g",
				PourTime: durPtr(0),
				Detail:   "Gentle swirl to knock grounds off the walls, then hands off.",
				PourType: "swirl",
			},
		},
		Version: 1,
	}
}

func durPtr(d time.Duration) *time.Duration { return &d }
