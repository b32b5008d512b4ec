package identity

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/capexport/internal/types"
)

func TestRoman(t *testing.T) {
	tests := map[int]string{
		1: "I", 2: "II", 3: "III", 4: "IV", 5: "V", 9: "IX", 14: "XIV",
		40: "XL", 90: "XC", 400: "CD", 1994: "MCMXCIV", 3999: "MMMCMXCIX",
		0: "0", 4000: "4000", -2: "-2",
	}
	for n, want := range tests {
		assert.Equal(t, want, Roman(n), "Roman(%d)", n)
	}
}

func TestCountingStrategy(t *testing.T) {
	r := NewResolver(NewCounting())

	got := []string{
		r.Resolve("Classic Cap", "Blue wool cap").ExportName,
		r.Resolve("Classic Cap", "Red wool cap").ExportName,
		r.Resolve("Trucker", "Mesh").ExportName,
		r.Resolve("Classic Cap", "Green wool cap").ExportName,
		r.Resolve("Classic Cap", "Green wool cap").ExportName,
	}
	assert.Equal(t, []string{"Classic Cap", "Classic Cap II", "Trucker", "Classic Cap III", "Classic Cap IV"}, got)
	assert.Equal(t, int64(3), r.Repeats())
}

func TestContentDiffStrategy(t *testing.T) {
	r := NewResolver(NewContentDiff())

	first := r.Resolve("Classic Cap", "Blue wool cap")
	second := r.Resolve("Classic Cap", "Red wool cap")

	assert.Equal(t, "Classic Cap", first.ExportName)
	assert.False(t, first.Repeat)
	assert.Equal(t, "Classic Cap Red", second.ExportName)
	assert.True(t, second.Repeat)
}

func TestContentDiffIdenticalDescriptionsKeepName(t *testing.T) {
	r := NewResolver(NewContentDiff())
	r.Resolve("Classic Cap", "<p>Blue wool cap</p>")
	res := r.Resolve("Classic Cap", "<p>Blue wool cap</p>")
	assert.Equal(t, "Classic Cap", res.ExportName)
	assert.True(t, res.Repeat)
}

func TestContentDiffComparesWithLastDescription(t *testing.T) {
	r := NewResolver(NewContentDiff())
	r.Resolve("Cap", "Blue wool cap")
	assert.Equal(t, "Cap Red", r.Resolve("Cap", "Red wool cap").ExportName)
	assert.Equal(t, "Cap Blue", r.Resolve("Cap", "Blue wool cap").ExportName)
}

func TestTokenDiff(t *testing.T) {
	tests := []struct {
		prev, next string
		want       []string
	}{
		{"Blue wool cap", "Red wool cap", []string{"Red"}},
		{"<p><span>Blue (wool) cap</span></p>", "<p>Blue wool cap<br/>Adjustable</p>", []string{"Adjustable"}},
		{"", "Red Red wool", []string{"Red", "wool"}},
		{"same words", "words same", nil},
		{"<strong>Navy</strong> cap", "<STRONG>Navy</STRONG> hat", []string{"hat"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TokenDiff(tt.prev, tt.next), "%q -> %q", tt.prev, tt.next)
	}
}

func TestSanitizeDescription(t *testing.T) {
	got := strings.Fields(SanitizeDescription("<p><span>Wool (blend)</span><br />Snapback<em>fit</em></p>"))
	assert.Equal(t, []string{"Wool", "blend", "Snapback", "fit"}, got)

	assert.Equal(t, "plain", SanitizeDescription("plain"))

	got = strings.Fields(SanitizeDescription(`<p style="a"><span class="x">Red</span> wool<br class="y"/>cap</p>`))
	assert.Equal(t, []string{"Red", "wool", "cap"}, got)
}

func TestContentDiffIgnoresTagAttributes(t *testing.T) {
	c := NewContentDiff()
	first, _ := c.Next("Classic Cap", `<p style="a">Blue wool cap</p>`)
	second, repeat := c.Next("Classic Cap", `<p style="a">Red wool cap</p>`)

	assert.Equal(t, "Classic Cap", first)
	assert.True(t, repeat)
	assert.Equal(t, "Classic Cap Red", second)
}

// Every later occurrence of a name must differ from all earlier emissions of it.
func TestFirstOccurrenceUnchangedAndLaterOnesDistinct(t *testing.T) {
	for _, strategy := range []string{StrategyCounting, StrategyContentDiff} {
		t.Run(strategy, func(t *testing.T) {
			s, err := NewStrategy(strategy)
			require.NoError(t, err)
			r := NewResolver(s)

			names := []string{"A", "B", "A", "C", "A", "B", "A"}
			emitted := make(map[string][]string)
			for i, name := range names {
				desc := fmt.Sprintf("shared words variant%d", i)
				res := r.Resolve(name, desc)

				prior := emitted[name]
				if len(prior) == 0 {
					assert.Equal(t, name, res.ExportName)
				}
				assert.NotContains(t, prior, res.ExportName)
				emitted[name] = append(prior, res.ExportName)
			}
		})
	}
}

func TestResolverConcurrentCollisionsAreUnique(t *testing.T) {
	r := NewResolver(NewCounting())

	const n = 200
	results := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- r.Resolve("Classic Cap", "Blue wool cap").ExportName
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]bool)
	for name := range results {
		require.False(t, seen[name], "duplicate export name %q", name)
		seen[name] = true
	}
	assert.Len(t, seen, n)
	assert.True(t, seen["Classic Cap"])
	assert.Equal(t, int64(n-1), r.Repeats())
}

type countingLocker struct {
	mu    sync.Mutex
	locks atomic.Int32
}

func (l *countingLocker) Lock()   { l.locks.Add(1); l.mu.Lock() }
func (l *countingLocker) Unlock() { l.mu.Unlock() }

func TestResolverUsesInjectedLocker(t *testing.T) {
	l := &countingLocker{}
	r := NewResolver(NewCounting(), WithLocker(l))
	r.Resolve("A", "")
	r.Resolve("A", "")
	assert.Equal(t, int32(2), l.locks.Load())
}

func TestNewStrategy(t *testing.T) {
	s, err := NewStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyCounting, s.Name())

	s, err = NewStrategy(StrategyContentDiff)
	require.NoError(t, err)
	assert.Equal(t, StrategyContentDiff, s.Name())

	_, err = NewStrategy("random")
	require.ErrorIs(t, err, types.ErrUnknownStrategy)
}
