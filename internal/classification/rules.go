package classification

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Veraticus/panel-ledger/internal/model"
)

// Pattern building blocks. Patterns run against folded, whitespace-collapsed
// text and are compiled case-insensitive.
const (
	// ref keeps consecutive id groups together so "sasuke (192)(209261)"
	// reaches ExtractIdentifier whole.
	ref      = `.*?(?:\s*\(\d+\))+`
	marker   = `^(?:jucatorul\b\s*)?`
	quantity = `x\s*\d+|\d+\s*x`
	amount   = `[^\s$]+`
	// nextAction is a concatenated second action: the marker followed by a
	// player reference. "de la jucatorul cu id 5" is not one.
	nextAction = `\bjucatorul\b[^()$]*?\(\d+\).*`
	// untilNextMarker stops a free-text capture where a concatenated
	// second action begins.
	untilNextMarker = `\s*\.?\s*(?:` + nextAction + `)?$`
)

var (
	bracketListPattern = regexp.MustCompile(`\[([^\]]*)\]`)
	// actionWordPattern finds verb-phrase words that never occur in a display
	// name; a name containing one swallowed the action text.
	actionWordPattern = regexp.MustCompile(`(?i)(?:^|\s)(?:a|ia|i-a|lui|jucatorului)(?:\s|$)|\$`)
)

var (
	// errMissingCapture is returned by extractors when a required group did not participate.
	errMissingCapture = errors.New("missing capture")
	errActorSpansText = errors.New("actor reference spans the action text")
)

// Captures maps named groups of a matched rule to the original text they covered.
type Captures map[string]string

// ExtractFunc builds a partial record from a rule's captures. The classifier
// fills in the action type, raw text and observation time.
type ExtractFunc func(m Captures) (*model.ActionRecord, error)

// Rule binds a pattern to the action type it produces.
type Rule struct {
	Extract ExtractFunc
	Name    string
	Tag     model.ActionType
	Pattern string
	// Anchors are folded lower-case keywords; the rule only runs when one occurs in the line.
	Anchors []string
}

// DefaultRules returns the built-in rule set, most specific first.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:    "warning_received",
			Tag:     model.ActionWarningReceived,
			Anchors: []string{"avertisment"},
			Pattern: marker + `(?P<actor>` + ref + `)\s*a primit un avertisment\s*(?:\((?P<count>\d+\s*/\s*\d+)\))?\s*,?\s*de la administratorul\s*(?P<admin>` + ref + `)\s*,?\s*(?:motiv\s*:?\s*(?P<reason>.*?))?\s*\.?\s*$`,
			Extract: extractWarningReceived,
		},
		{
			Name:    "warning_removed",
			Tag:     model.ActionWarningRemoved,
			Anchors: []string{"avertisment"},
			Pattern: `^administratorul\s*(?P<admin>` + ref + `)\s*(?:i-?a|a)\s+scos un avertisment\s*(?:jucatorului\s*)?(?P<actor>` + ref + `)`,
			Extract: extractWarningRemoved,
		},
		{
			Name:    "chest_deposit",
			Tag:     model.ActionChestDeposit,
			Anchors: []string{"pus in chest"},
			Pattern: marker + `(?P<actor>` + ref + `)\s*a pus in chest\b(?P<chest>.*?)\s*(?P<qty>` + quantity + `)\s+(?P<item>.+?)` + untilNextMarker,
			Extract: extractChest("deposited", "in"),
		},
		{
			Name:    "chest_withdraw",
			Tag:     model.ActionChestWithdraw,
			Anchors: []string{"scos din chest"},
			Pattern: marker + `(?P<actor>` + ref + `)\s*a scos din chest\b(?P<chest>.*?)\s*(?P<qty>` + quantity + `)\s+(?P<item>.+?)` + untilNextMarker,
			Extract: extractChest("withdrew", "from"),
		},
		{
			Name:    "item_given",
			Tag:     model.ActionItemGiven,
			Anchors: []string{"dat lui"},
			Pattern: marker + `(?P<actor>` + ref + `)\s*(?:i-?a|a)\s+dat lui\s*(?P<target>` + ref + `)\s*(?:(?P<qty>` + quantity + `)\s+)?(?P<item>.+?)` + untilNextMarker,
			Extract: extractItemTransfer("gave", "to"),
		},
		{
			Name:    "item_received",
			Tag:     model.ActionItemReceived,
			Anchors: []string{"primit de la"},
			Pattern: marker + `(?P<actor>` + ref + `)\s*a primit de la\s*(?P<target>` + ref + `)\s*(?:(?P<qty>` + quantity + `)\s+)?(?P<item>.+?)` + untilNextMarker,
			Extract: extractItemTransfer("received", "from"),
		},
		{
			Name:    "money_transfer",
			Tag:     model.ActionMoneyTransfer,
			Anchors: []string{"transferat"},
			Pattern: marker + `(?P<actor>` + ref + `)\s*(?:i-?a|a)\s+transferat\s+(?:suma de\s+)?(?P<amount>` + amount + `)(?:\s*\(de\))?\s*\$?\s*(?:lui|jucatorului)\s*(?P<target>` + ref + `)\s*(?:\[(?P<mode>[^\]]*)\])?`,
			Extract: extractMoneyTransfer,
		},
		{
			Name:    "money_deposit",
			Tag:     model.ActionMoneyDeposit,
			Anchors: []string{"depozitat"},
			Pattern: marker + `(?P<actor>` + ref + `)\s*a depozitat\s+(?:suma de\s+)?(?P<amount>` + amount + `)\s*\$?\s*(?:\(\s*taxa\s+(?P<fee>[^\s$)]+)\s*\$?\s*\))?`,
			Extract: extractBankMovement("deposit"),
		},
		{
			Name:    "money_withdraw",
			Tag:     model.ActionMoneyWithdraw,
			Anchors: []string{"retras"},
			Pattern: marker + `(?P<actor>` + ref + `)\s*a retras\s+(?:suma de\s+)?(?P<amount>` + amount + `)\s*\$?\s*(?:\(\s*taxa\s+(?P<fee>[^\s$)]+)\s*\$?\s*\))?`,
			Extract: extractBankMovement("withdrawal"),
		},
		{
			Name:    "property_bought",
			Tag:     model.ActionPropertyBought,
			Anchors: []string{"cu id"},
			Pattern: marker + `(?P<actor>` + ref + `)\s*a (?:achizitionat|cumparat)\s+(?P<desc>.+?)\s+de la jucatorul\s+cu id\s*(?P<target>\d+)(?:\s+pentru suma de\s+(?P<amount>` + amount + `))?`,
			Extract: extractProperty("bought", "from"),
		},
		{
			Name:    "property_sold",
			Tag:     model.ActionPropertySold,
			Anchors: []string{"cu id"},
			Pattern: marker + `(?P<actor>` + ref + `)\s*a vandut\s+(?P<desc>.+?)\s+(?:(?:de la|catre|lui)\s+)?jucatorul(?:ui)?\s+cu id\s*(?P<target>\d+)(?:\s+pentru suma de\s+(?P<amount>` + amount + `))?`,
			Extract: extractProperty("sold", "to"),
		},
		{
			Name:    "vehicle_bought",
			Tag:     model.ActionVehicleBought,
			Anchors: []string{"cumparat"},
			Pattern: marker + `(?P<actor>` + ref + `)\s*a cumparat\s+(?P<desc>.+?)` + untilNextMarker,
			Extract: extractVehicle("bought"),
		},
		{
			Name:    "vehicle_sold",
			Tag:     model.ActionVehicleSold,
			Anchors: []string{"vandut"},
			Pattern: marker + `(?P<actor>` + ref + `)\s*a vandut\s+(?P<desc>.+?)` + untilNextMarker,
			Extract: extractVehicle("sold"),
		},
		{
			Name:    "vehicle_contract",
			Tag:     model.ActionVehicleContract,
			Anchors: []string{"contract"},
			Pattern: `^contract\s*(?P<actor>` + ref + `)\s*(?:->|→)?\s*(?P<target>` + ref + `)\s*\.?\s*(?:\((?P<vehicles>.*)\))?`,
			Extract: extractContract,
		},
		{
			Name:    "trade",
			Tag:     model.ActionTrade,
			Anchors: []string{"trade"},
			Pattern: `^trade(?:ul)?\s+(?:(?:dintre|intre)\s+)?(?:jucatorii\s*)?(?P<actor>` + ref + `)\s+si\s*(?P<target>` + ref + `)(?P<rest>.*)$`,
			Extract: extractPair("trade between"),
		},
		{
			Name:    "license_plate_sale",
			Tag:     model.ActionLicensePlateSale,
			Anchors: []string{"placute"},
			Pattern: `^vanzarea de placute.*?jucatorii\s*(?P<actor>` + ref + `)\s+si\s*(?P<target>` + ref + `)(?P<rest>.*)$`,
			Extract: extractPair("license plate sale between"),
		},
		{
			Name:    "gambling_win",
			Tag:     model.ActionGamblingWin,
			Anchors: []string{"castigat"},
			Pattern: marker + `(?P<actor>` + ref + `)\s*a castigat\s+(?:(?:suma de\s+)?(?P<amount>[\d.,]+)\s*\$?\s+)?impotriva lui\s*(?P<target>` + ref + `)(?P<rest>.*)$`,
			Extract: extractGamblingWin,
		},
		{
			Name:    "other",
			Tag:     model.ActionOther,
			Anchors: []string{"jucatorul"},
			Pattern: `\bjucatorul\b\s*(?P<actor>` + ref + `)\s*(?P<detail>.*?)\s*(?:` + nextAction + `)?$`,
			Extract: extractOther,
		},
	}
}

// actorFrom parses a required reference; a missing id rejects the rule.
func actorFrom(m Captures, group string) (Identifier, error) {
	fragment, ok := m[group]
	if !ok {
		return Identifier{}, fmt.Errorf("%w: %s", errMissingCapture, group)
	}
	id, err := ExtractIdentifier(fragment)
	if err != nil {
		return Identifier{}, err
	}
	if id.Name != nil && actionWordPattern.MatchString(FoldDiacritics(*id.Name)) {
		return Identifier{}, fmt.Errorf("%w: %q", errActorSpansText, *id.Name)
	}
	return id, nil
}

func newRecord(actor Identifier) *model.ActionRecord {
	id := actor.ID
	return &model.ActionRecord{ActorID: &id, ActorName: actor.Name}
}

// setTarget fills the target fields when the reference parses; otherwise they stay nil.
func setTarget(rec *model.ActionRecord, fragment string) {
	target, err := ExtractIdentifier(fragment)
	if err != nil {
		return
	}
	id := target.ID
	rec.TargetID = &id
	rec.TargetName = target.Name
}

func setQuantity(rec *model.ActionRecord, s string) {
	if s == "" {
		return
	}
	if qty, err := ParseQuantity(s); err == nil {
		rec.ItemQuantity = &qty
	}
}

func parseOptionalAmount(s string) *int64 {
	if s == "" {
		return nil
	}
	v, err := ParseAmount(s)
	if err != nil {
		return nil
	}
	return &v
}

func formatMoney(v *int64) string {
	if v == nil {
		return "?$"
	}
	return fmt.Sprintf("%d$", *v)
}

func targetLabel(rec *model.ActionRecord) string {
	switch {
	case rec.TargetName != nil:
		return *rec.TargetName
	case rec.TargetID != nil:
		return *rec.TargetID
	default:
		return "?"
	}
}

func itemLabel(rec *model.ActionRecord) string {
	item := model.Deref(rec.ItemName)
	if rec.ItemQuantity != nil {
		return fmt.Sprintf("%dx %s", *rec.ItemQuantity, item)
	}
	return item
}

func extractWarningReceived(m Captures) (*model.ActionRecord, error) {
	actor, err := actorFrom(m, "actor")
	if err != nil {
		return nil, err
	}
	rec := newRecord(actor)

	if admin, err := ExtractIdentifier(m["admin"]); err == nil {
		id := admin.ID
		rec.AdminID = &id
		rec.AdminName = admin.Name
	}
	if count := strings.ReplaceAll(m["count"], " ", ""); count != "" {
		rec.WarningCount = &count
	}
	rec.Reason = CleanText(m["reason"])

	detail := "warning"
	if rec.WarningCount != nil {
		detail += " " + *rec.WarningCount
	}
	if rec.AdminID != nil {
		detail += " from " + adminLabel(rec)
	}
	rec.Detail = &detail
	return rec, nil
}

func adminLabel(rec *model.ActionRecord) string {
	if rec.AdminName != nil {
		return *rec.AdminName
	}
	return model.Deref(rec.AdminID)
}

func extractWarningRemoved(m Captures) (*model.ActionRecord, error) {
	actor, err := actorFrom(m, "actor")
	if err != nil {
		return nil, err
	}
	rec := newRecord(actor)

	admin, err := actorFrom(m, "admin")
	if err != nil {
		return nil, fmt.Errorf("admin: %w", err)
	}
	id := admin.ID
	rec.AdminID = &id
	rec.AdminName = admin.Name

	detail := "warning removed by " + adminLabel(rec)
	rec.Detail = &detail
	return rec, nil
}

func extractChest(verb, preposition string) ExtractFunc {
	return func(m Captures) (*model.ActionRecord, error) {
		actor, err := actorFrom(m, "actor")
		if err != nil {
			return nil, err
		}
		rec := newRecord(actor)
		setQuantity(rec, m["qty"])
		rec.ItemName = CleanText(m["item"])

		detail := fmt.Sprintf("%s %s %s chest", verb, itemLabel(rec), preposition)
		if chest := CleanText(strings.Trim(m["chest"], " []")); chest != nil {
			detail += " " + *chest
		}
		rec.Detail = &detail
		return rec, nil
	}
}

func extractItemTransfer(verb, preposition string) ExtractFunc {
	return func(m Captures) (*model.ActionRecord, error) {
		actor, err := actorFrom(m, "actor")
		if err != nil {
			return nil, err
		}
		rec := newRecord(actor)
		setTarget(rec, m["target"])
		setQuantity(rec, m["qty"])
		rec.ItemName = CleanText(m["item"])

		detail := fmt.Sprintf("%s %s %s %s", verb, itemLabel(rec), preposition, targetLabel(rec))
		rec.Detail = &detail
		return rec, nil
	}
}

func extractMoneyTransfer(m Captures) (*model.ActionRecord, error) {
	actor, err := actorFrom(m, "actor")
	if err != nil {
		return nil, err
	}
	rec := newRecord(actor)
	setTarget(rec, m["target"])
	rec.Amount = parseOptionalAmount(m["amount"])

	detail := fmt.Sprintf("transfer of %s to %s", formatMoney(rec.Amount), targetLabel(rec))
	if mode := NormalizeName(m["mode"]); mode != nil {
		detail += " [" + *mode + "]"
	}
	rec.Detail = &detail
	return rec, nil
}

func extractBankMovement(noun string) ExtractFunc {
	return func(m Captures) (*model.ActionRecord, error) {
		actor, err := actorFrom(m, "actor")
		if err != nil {
			return nil, err
		}
		rec := newRecord(actor)
		rec.Amount = parseOptionalAmount(m["amount"])
		rec.Fee = parseOptionalAmount(m["fee"])

		detail := fmt.Sprintf("%s of %s", noun, formatMoney(rec.Amount))
		if rec.Fee != nil {
			detail += fmt.Sprintf(" (fee %s)", formatMoney(rec.Fee))
		}
		rec.Detail = &detail
		return rec, nil
	}
}

func extractProperty(verb, preposition string) ExtractFunc {
	return func(m Captures) (*model.ActionRecord, error) {
		actor, err := actorFrom(m, "actor")
		if err != nil {
			return nil, err
		}
		rec := newRecord(actor)
		if target := strings.TrimSpace(m["target"]); target != "" {
			rec.TargetID = &target
		}
		rec.Amount = parseOptionalAmount(m["amount"])
		rec.ItemName = CleanText(m["desc"])

		detail := fmt.Sprintf("%s %s %s player %s", verb, model.Deref(rec.ItemName), preposition, targetLabel(rec))
		if rec.Amount != nil {
			detail += " for " + formatMoney(rec.Amount)
		}
		rec.Detail = &detail
		return rec, nil
	}
}

func extractVehicle(verb string) ExtractFunc {
	return func(m Captures) (*model.ActionRecord, error) {
		actor, err := actorFrom(m, "actor")
		if err != nil {
			return nil, err
		}
		rec := newRecord(actor)
		desc := CleanText(m["desc"])
		if desc == nil {
			return nil, fmt.Errorf("%w: desc", errMissingCapture)
		}
		detail := verb + " " + *desc
		rec.Detail = &detail
		return rec, nil
	}
}

func extractContract(m Captures) (*model.ActionRecord, error) {
	actor, err := actorFrom(m, "actor")
	if err != nil {
		return nil, err
	}
	rec := newRecord(actor)
	setTarget(rec, m["target"])

	if vehicles := contractVehicles(m["vehicles"]); len(vehicles) > 0 {
		list := strings.Join(vehicles, ", ")
		rec.ItemName = &list
	}

	detail := fmt.Sprintf("contract between %s and %s", actor.DisplayName(), targetLabel(rec))
	if rec.ItemName != nil {
		detail += ": " + *rec.ItemName
	}
	rec.Detail = &detail
	return rec, nil
}

// contractVehicles flattens "('1' [Bravado Harger 69, ], '2' [])" into its non-empty entries.
func contractVehicles(section string) []string {
	var vehicles []string
	for _, group := range bracketListPattern.FindAllStringSubmatch(section, -1) {
		for _, entry := range strings.Split(group[1], ",") {
			if name := NormalizeName(entry); name != nil {
				vehicles = append(vehicles, *name)
			}
		}
	}
	return vehicles
}

func extractPair(label string) ExtractFunc {
	return func(m Captures) (*model.ActionRecord, error) {
		actor, err := actorFrom(m, "actor")
		if err != nil {
			return nil, err
		}
		rec := newRecord(actor)
		setTarget(rec, m["target"])

		detail := fmt.Sprintf("%s %s and %s", label, actor.DisplayName(), targetLabel(rec))
		if rest := CleanText(strings.TrimLeft(m["rest"], " .,:")); rest != nil {
			detail += ": " + *rest
		}
		rec.Detail = &detail
		return rec, nil
	}
}

func extractGamblingWin(m Captures) (*model.ActionRecord, error) {
	actor, err := actorFrom(m, "actor")
	if err != nil {
		return nil, err
	}
	rec := newRecord(actor)
	setTarget(rec, m["target"])
	rec.Amount = parseOptionalAmount(m["amount"])

	detail := "won against " + targetLabel(rec)
	if rec.Amount != nil {
		detail = fmt.Sprintf("won %s against %s", formatMoney(rec.Amount), targetLabel(rec))
	}
	if rest := CleanText(strings.TrimLeft(m["rest"], " .,:")); rest != nil {
		detail += ": " + *rest
	}
	rec.Detail = &detail
	return rec, nil
}

func extractOther(m Captures) (*model.ActionRecord, error) {
	actor, err := actorFrom(m, "actor")
	if err != nil {
		return nil, err
	}
	rec := newRecord(actor)
	rec.Detail = CleanText(m["detail"])
	return rec, nil
}
