package classification

import (
	"fmt"
	"regexp"

	"github.com/Veraticus/panel-ledger/internal/common"
)

var idGroupPattern = regexp.MustCompile(`\((\d+)\)`)

// Identifier is a player or admin reference such as "Mihai(137922)".
type Identifier struct {
	Name *string
	ID   string
}

// DisplayName returns the name when known and the id otherwise.
func (i Identifier) DisplayName() string {
	if i.Name != nil {
		return *i.Name
	}
	return i.ID
}

// ExtractIdentifier parses "Name(123)", "[token](123)" and "(123)".
// The rightmost all-digit group is the id; anything before it, including
// earlier groups, is kept as the display name.
func ExtractIdentifier(fragment string) (Identifier, error) {
	groups := idGroupPattern.FindAllStringSubmatchIndex(fragment, -1)
	if len(groups) == 0 {
		return Identifier{}, fmt.Errorf("%w in %q", common.ErrNoIdentifierFound, fragment)
	}

	last := groups[len(groups)-1]
	return Identifier{
		Name: NormalizeName(fragment[:last[0]]),
		ID:   fragment[last[2]:last[3]],
	}, nil
}
