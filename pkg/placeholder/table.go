package placeholder

import (
	"context"
	"time"
)

// Provider computes the current value of a dynamic placeholder.
type Provider interface {
	Value(ctx context.Context) (string, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) (string, error)

func (f ProviderFunc) Value(ctx context.Context) (string, error) { return f(ctx) }

// Degrader is implemented by providers that know how to phrase their own
// failures for the end user.
type Degrader interface {
	Degraded(err error) string
}

// Clock returns the current time. Injected so tests can freeze it.
type Clock func() time.Time

// Provider names as referenced by the "function" field of facts.
const (
	FuncTime    = "get_time"
	FuncDate    = "get_date"
	FuncWeekday = "get_day"
	FuncWeather = "get_weather"
)

// Recognized tokens inside response templates.
const (
	TagTime    = "{heure}"
	TagDate    = "{date}"
	TagWeekday = "{jour}"
	TagWeather = "{meteo}"
)

// DefaultUnavailable is returned when a provider fails and has no Degrader.
const DefaultUnavailable = "Information indisponible pour le moment."

var frenchWeekdays = [...]string{"dimanche", "lundi", "mardi", "mercredi", "jeudi", "vendredi", "samedi"}

type entry struct {
	name     string
	tag      string
	provider Provider
}

// Table is the closed set of dynamic value providers. Names outside the
// table cannot be registered from knowledge data.
type Table struct {
	entries []entry // fixed substitution order
	byName  map[string]int
}

// NewTable builds the four standard providers. weather may be nil, in which
// case {meteo} resolves to DefaultUnavailable.
func NewTable(clock Clock, loc *time.Location, weather Provider) *Table {
	if clock == nil {
		clock = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	now := func() time.Time { return clock().In(loc) }

	if weather == nil {
		weather = ProviderFunc(func(context.Context) (string, error) { return DefaultUnavailable, nil })
	}

	t := &Table{byName: make(map[string]int)}
	t.add(FuncTime, TagTime, ProviderFunc(func(context.Context) (string, error) {
		return now().Format("15:04"), nil
	}))
	t.add(FuncDate, TagDate, ProviderFunc(func(context.Context) (string, error) {
		return now().Format("02/01/2006"), nil
	}))
	t.add(FuncWeekday, TagWeekday, ProviderFunc(func(context.Context) (string, error) {
		return frenchWeekdays[now().Weekday()], nil
	}))
	t.add(FuncWeather, TagWeather, weather)
	return t
}

func (t *Table) add(name, tag string, p Provider) {
	t.byName[name] = len(t.entries)
	t.entries = append(t.entries, entry{name: name, tag: tag, provider: p})
}

// Has reports whether name is a known provider.
func (t *Table) Has(name string) bool {
	_, ok := t.byName[name]
	return ok
}

// Names lists the provider names in substitution order.
func (t *Table) Names() []string {
	names := make([]string, len(t.entries))
	for i, e := range t.entries {
		names[i] = e.name
	}
	return names
}

// Call invokes the provider registered under name. A failing provider yields
// its degraded text; ok is false only for unknown names.
func (t *Table) Call(ctx context.Context, name string) (value string, ok bool) {
	i, found := t.byName[name]
	if !found {
		return "", false
	}
	return valueOf(ctx, t.entries[i].provider), true
}

func valueOf(ctx context.Context, p Provider) string {
	v, err := p.Value(ctx)
	if err == nil {
		return v
	}
	if d, ok := p.(Degrader); ok {
		return d.Degraded(err)
	}
	return DefaultUnavailable
}
