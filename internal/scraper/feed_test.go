package scraper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var feedTime = time.Date(2025, 3, 14, 18, 30, 0, 0, time.UTC)

const activityPage = `<!DOCTYPE html>
<html><body>
<nav><a href="/">Acasa</a> Jucatorul online: 120</nav>
<div class="card">
  <div class="card-header">Ultimele actiuni</div>
  <ul class="activity-feed">
    <li><span class="time">2025-03-14 18:29:01</span>
        Jucatorul Ion(5) a depozitat suma de 1.000$ (taxa 10$).</li>
    <li>Administratorul Tipic(184) ia scos un avertisment jucatorului defuse (199104).</li>
    <li>Mihai (137922) ia transferat suma de 7.500.000 (de) $ lui Vasile(137592) [IN MANA]</li>
    <li>scurt</li>
    <li>Jucatorul Ion(5) a depozitat suma de 1.000$ (taxa 10$).</li>
    <li>Jucatorul   Ion(5) a depozitat suma de 1.000$ (taxa 10$).</li>
    <li>Un text lung care nu descrie nicio actiune relevanta</li>
  </ul>
</div>
</body></html>`

func TestParseFeed_ActivitySection(t *testing.T) {
	lines, err := ParseFeed([]byte(activityPage), feedTime, 0)
	require.NoError(t, err)

	texts := make([]string, len(lines))
	for i, l := range lines {
		texts[i] = l.RawText
		assert.Equal(t, feedTime, l.ObservedAt)
	}
	assert.Equal(t, []string{
		"2025-03-14 18:29:01 Jucatorul Ion(5) a depozitat suma de 1.000$ (taxa 10$).",
		"Administratorul Tipic(184) ia scos un avertisment jucatorului defuse (199104).",
		"Mihai (137922) ia transferat suma de 7.500.000 (de) $ lui Vasile(137592) [IN MANA]",
		"Jucatorul Ion(5) a depozitat suma de 1.000$ (taxa 10$).",
	}, texts)
}

func TestParseFeed_Limit(t *testing.T) {
	lines, err := ParseFeed([]byte(activityPage), feedTime, 2)
	require.NoError(t, err)
	assert.Len(t, lines, 2)
}

func TestParseFeed_Fallbacks(t *testing.T) {
	tests := []struct {
		name string
		html string
		want []string
	}{
		{
			name: "direct selector",
			html: `<html><body><div id="activity">
				<div>Jucatorul Ana(7) a cumparat Infernus.</div></div></body></html>`,
			want: []string{"Jucatorul Ana(7) a cumparat Infernus."},
		},
		{
			name: "heading ancestor",
			html: `<html><body><section><h3>Activitate recenta</h3><table>
				<tr><td>Jucatorul Ana(7) a vandut Infernus.</td></tr>
				<tr><td>Trade intre jucatorii Ana(7) si Dan(8).</td></tr>
				</table></section></body></html>`,
			want: []string{"Jucatorul Ana(7) a vandut Infernus.", "Trade intre jucatorii Ana(7) si Dan(8)."},
		},
		{
			name: "marker density",
			html: `<html><body><div><div>
				<div>Jucatorul A(1) s-a conectat pe server.</div>
				<div>Jucatorul B(2) s-a conectat pe server.</div>
				<div>Jucatorul C(3) s-a conectat pe server.</div>
				</div></div></body></html>`,
			want: []string{
				"Jucatorul A(1) s-a conectat pe server.",
				"Jucatorul B(2) s-a conectat pe server.",
				"Jucatorul C(3) s-a conectat pe server.",
			},
		},
		{
			name: "diacritics in the marker",
			html: `<html><body><ul class="timeline">
				<li>Jucătorul Ștefan(9) a câștigat suma de 100$ împotriva lui Ion(5).</li>
				</ul></body></html>`,
			want: []string{"Jucătorul Ștefan(9) a câștigat suma de 100$ împotriva lui Ion(5)."},
		},
		{
			name: "no feed",
			html: `<html><body><p>Bine ai venit pe panel</p></body></html>`,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines, err := ParseFeed([]byte(tt.html), feedTime, 0)
			require.NoError(t, err)

			var got []string
			for _, l := range lines {
				got = append(got, l.RawText)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
