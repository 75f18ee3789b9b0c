package classification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/panel-ledger/internal/model"
)

var testObservedAt = time.Date(2024, 5, 10, 18, 30, 0, 0, time.UTC)

// expectation lists only the fields a case cares about; unset pointers must be nil.
type expectation struct {
	actionType   model.ActionType
	actorID      string
	actorName    *string
	targetID     *string
	targetName   *string
	itemName     *string
	itemQuantity *int
	adminID      *string
	adminName    *string
	reason       *string
	warningCount *string
	amount       *int64
	fee          *int64
	detail       *string
}

type ruleCase struct {
	name string
	line string
	want expectation
}

func runRuleCases(t *testing.T, cases []ruleCase) {
	t.Helper()
	c := MustDefault()

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.line, testObservedAt)
			require.NotNil(t, got)

			assert.Equal(t, tt.want.actionType, got.ActionType)
			require.NotNil(t, got.ActorID)
			assert.Equal(t, tt.want.actorID, *got.ActorID)
			assert.Equal(t, tt.want.actorName, got.ActorName, "actor name")
			assert.Equal(t, tt.want.targetID, got.TargetID, "target id")
			assert.Equal(t, tt.want.targetName, got.TargetName, "target name")
			assert.Equal(t, tt.want.itemName, got.ItemName, "item name")
			assert.Equal(t, tt.want.itemQuantity, got.ItemQuantity, "item quantity")
			assert.Equal(t, tt.want.adminID, got.AdminID, "admin id")
			assert.Equal(t, tt.want.adminName, got.AdminName, "admin name")
			assert.Equal(t, tt.want.reason, got.Reason, "reason")
			assert.Equal(t, tt.want.warningCount, got.WarningCount, "warning count")
			assert.Equal(t, tt.want.amount, got.Amount, "amount")
			assert.Equal(t, tt.want.fee, got.Fee, "fee")
			assert.Equal(t, tt.want.detail, got.Detail, "detail")
			assert.Equal(t, tt.line, got.RawText)
			assert.Equal(t, testObservedAt, got.ObservedAt)
		})
	}
}

func TestRule_WarningReceived(t *testing.T) {
	runRuleCases(t, []ruleCase{
		{
			name: "full template",
			line: "Jucatorul Ion Popescu(1234) a primit un avertisment (1/3), de la administratorul Tipic(184), motiv: DM in zona safe.",
			want: expectation{
				actionType:   model.ActionWarningReceived,
				actorID:      "1234",
				actorName:    strPtr("Ion Popescu"),
				adminID:      strPtr("184"),
				adminName:    strPtr("Tipic"),
				reason:       strPtr("DM in zona safe"),
				warningCount: strPtr("1/3"),
				detail:       strPtr("warning 1/3 from Tipic"),
			},
		},
		{
			name: "diacritics in marker and name",
			line: "Jucătorul Ștefan(77) a primit un avertisment (2/3), de la administratorul Tipic(184), motiv: limbaj.",
			want: expectation{
				actionType:   model.ActionWarningReceived,
				actorID:      "77",
				actorName:    strPtr("Ștefan"),
				adminID:      strPtr("184"),
				adminName:    strPtr("Tipic"),
				reason:       strPtr("limbaj"),
				warningCount: strPtr("2/3"),
				detail:       strPtr("warning 2/3 from Tipic"),
			},
		},
	})
}

func TestRule_WarningRemoved(t *testing.T) {
	runRuleCases(t, []ruleCase{
		{
			name: "warned player with spaced id",
			line: "Administratorul Tipic(184) ia scos un avertisment jucatorului defuse (199104).",
			want: expectation{
				actionType: model.ActionWarningRemoved,
				actorID:    "199104",
				actorName:  strPtr("defuse"),
				adminID:    strPtr("184"),
				adminName:  strPtr("Tipic"),
				detail:     strPtr("warning removed by Tipic"),
			},
		},
		{
			name: "name starting with digits",
			line: "Administratorul Elcheliuta(65) ia scos un avertisment jucatorului 19bada(178277).",
			want: expectation{
				actionType: model.ActionWarningRemoved,
				actorID:    "178277",
				actorName:  strPtr("19bada"),
				adminID:    strPtr("65"),
				adminName:  strPtr("Elcheliuta"),
				detail:     strPtr("warning removed by Elcheliuta"),
			},
		},
		{
			name: "hyphenated verb",
			line: "Administratorul Tipic(184) i-a scos un avertisment jucatorului defuse (199104).",
			want: expectation{
				actionType: model.ActionWarningRemoved,
				actorID:    "199104",
				actorName:  strPtr("defuse"),
				adminID:    strPtr("184"),
				adminName:  strPtr("Tipic"),
				detail:     strPtr("warning removed by Tipic"),
			},
		},
	})
}

func TestRule_Chest(t *testing.T) {
	runRuleCases(t, []ruleCase{
		{
			name: "deposit with chest id",
			line: "Jucatorul Ion(5) a pus in chest ID 12 x5 Apa Plata",
			want: expectation{
				actionType:   model.ActionChestDeposit,
				actorID:      "5",
				actorName:    strPtr("Ion"),
				itemName:     strPtr("Apa Plata"),
				itemQuantity: intPtr(5),
				detail:       strPtr("deposited 5x Apa Plata in chest ID 12"),
			},
		},
		{
			name: "deposit with trailing quantity marker",
			line: "Jucatorul Ion(5) a pus în chest 3x Pistol.",
			want: expectation{
				actionType:   model.ActionChestDeposit,
				actorID:      "5",
				actorName:    strPtr("Ion"),
				itemName:     strPtr("Pistol"),
				itemQuantity: intPtr(3),
				detail:       strPtr("deposited 3x Pistol in chest"),
			},
		},
		{
			name: "withdraw with bracketed chest",
			line: "Jucatorul Ion(5) a scos din chest [ID 7] x2 Bandaj",
			want: expectation{
				actionType:   model.ActionChestWithdraw,
				actorID:      "5",
				actorName:    strPtr("Ion"),
				itemName:     strPtr("Bandaj"),
				itemQuantity: intPtr(2),
				detail:       strPtr("withdrew 2x Bandaj from chest ID 7"),
			},
		},
		{
			name: "concatenated second action is cut off",
			line: "Jucatorul Ion(12) a pus in chest x5 Apa Jucatorul Mihai(13) a scos din chest x1 Paine",
			want: expectation{
				actionType:   model.ActionChestDeposit,
				actorID:      "12",
				actorName:    strPtr("Ion"),
				itemName:     strPtr("Apa"),
				itemQuantity: intPtr(5),
				detail:       strPtr("deposited 5x Apa in chest"),
			},
		},
	})
}

func TestRule_ItemTransfer(t *testing.T) {
	runRuleCases(t, []ruleCase{
		{
			name: "time label before the marker",
			line: "[12:01] Jucatorul Ion(12) a dat lui Vasile(13) x5 Apa",
			want: expectation{
				actionType:   model.ActionItemGiven,
				actorID:      "12",
				actorName:    strPtr("Ion"),
				targetID:     strPtr("13"),
				targetName:   strPtr("Vasile"),
				itemName:     strPtr("Apa"),
				itemQuantity: intPtr(5),
				detail:       strPtr("gave 5x Apa to Vasile"),
			},
		},
		{
			name: "given with concatenated second action",
			line: "Jucatorul Ion(5) ia dat lui Vasile(6) x3 Paine Jucatorul Mihai(7) a primit de la Ion(5) x1 Apa",
			want: expectation{
				actionType:   model.ActionItemGiven,
				actorID:      "5",
				actorName:    strPtr("Ion"),
				targetID:     strPtr("6"),
				targetName:   strPtr("Vasile"),
				itemName:     strPtr("Paine"),
				itemQuantity: intPtr(3),
				detail:       strPtr("gave 3x Paine to Vasile"),
			},
		},
		{
			name: "given",
			line: "Jucatorul Ion(5) ia dat lui Vasile(6) x3 Paine.",
			want: expectation{
				actionType:   model.ActionItemGiven,
				actorID:      "5",
				actorName:    strPtr("Ion"),
				targetID:     strPtr("6"),
				targetName:   strPtr("Vasile"),
				itemName:     strPtr("Paine"),
				itemQuantity: intPtr(3),
				detail:       strPtr("gave 3x Paine to Vasile"),
			},
		},
		{
			name: "received",
			line: "Jucatorul Ion(5) a primit de la Vasile(6) 2x Telefon",
			want: expectation{
				actionType:   model.ActionItemReceived,
				actorID:      "5",
				actorName:    strPtr("Ion"),
				targetID:     strPtr("6"),
				targetName:   strPtr("Vasile"),
				itemName:     strPtr("Telefon"),
				itemQuantity: intPtr(2),
				detail:       strPtr("received 2x Telefon from Vasile"),
			},
		},
		{
			name: "received without quantity or sender name",
			line: "Jucatorul Ion(5) a primit de la (6) Telefon",
			want: expectation{
				actionType: model.ActionItemReceived,
				actorID:    "5",
				actorName:  strPtr("Ion"),
				targetID:   strPtr("6"),
				itemName:   strPtr("Telefon"),
				detail:     strPtr("received Telefon from 6"),
			},
		},
	})
}

func TestRule_Money(t *testing.T) {
	runRuleCases(t, []ruleCase{
		{
			name: "transfer in hand",
			line: "Mihai (137922) ia transferat suma de 7.500.000 (de) $ lui[email protected](137592) [IN MANA]",
			want: expectation{
				actionType: model.ActionMoneyTransfer,
				actorID:    "137922",
				actorName:  strPtr("Mihai"),
				targetID:   strPtr("137592"),
				targetName: strPtr("[email protected]"),
				amount:     int64Ptr(7500000),
				detail:     strPtr("transfer of 7500000$ to [email protected] [IN MANA]"),
			},
		},
		{
			name: "transfer with unparsable amount keeps the record",
			line: "Jucatorul Ion(5) ia transferat suma de multi $ lui Vasile(6)",
			want: expectation{
				actionType: model.ActionMoneyTransfer,
				actorID:    "5",
				actorName:  strPtr("Ion"),
				targetID:   strPtr("6"),
				targetName: strPtr("Vasile"),
				detail:     strPtr("transfer of ?$ to Vasile"),
			},
		},
		{
			name: "deposit by bracketed token",
			line: "Jucatorul[email protected](137592) a depozitat suma de 61.000.000$ (taxa 610.000$).",
			want: expectation{
				actionType: model.ActionMoneyDeposit,
				actorID:    "137592",
				actorName:  strPtr("[email protected]"),
				amount:     int64Ptr(61000000),
				fee:        int64Ptr(610000),
				detail:     strPtr("deposit of 61000000$ (fee 610000$)"),
			},
		},
		{
			name: "deposit with noise group in name",
			line: "Jucatorul sasuke (192)(209261) a depozitat suma de 131.000.000$ (taxa 1.310.000$).",
			want: expectation{
				actionType: model.ActionMoneyDeposit,
				actorID:    "209261",
				actorName:  strPtr("sasuke (192)"),
				amount:     int64Ptr(131000000),
				fee:        int64Ptr(1310000),
				detail:     strPtr("deposit of 131000000$ (fee 1310000$)"),
			},
		},
		{
			name: "deposit without name",
			line: "Jucatorul (221001) a depozitat suma de 2.781.647$ (taxa 27.816$).",
			want: expectation{
				actionType: model.ActionMoneyDeposit,
				actorID:    "221001",
				amount:     int64Ptr(2781647),
				fee:        int64Ptr(27816),
				detail:     strPtr("deposit of 2781647$ (fee 27816$)"),
			},
		},
		{
			name: "withdraw",
			line: "Jucatorul Ion(5) a retras suma de 1.000.000$ (taxa 10.000$).",
			want: expectation{
				actionType: model.ActionMoneyWithdraw,
				actorID:    "5",
				actorName:  strPtr("Ion"),
				amount:     int64Ptr(1000000),
				fee:        int64Ptr(10000),
				detail:     strPtr("withdrawal of 1000000$ (fee 10000$)"),
			},
		},
	})
}

func TestRule_Property(t *testing.T) {
	runRuleCases(t, []ruleCase{
		{
			name: "bought house",
			line: "Jucatorul Ioan Glont(56894) a achizitionat Casa Nr. 95 de la jucatorul cu ID 173608 pentru suma de 500.000.000$.",
			want: expectation{
				actionType: model.ActionPropertyBought,
				actorID:    "56894",
				actorName:  strPtr("Ioan Glont"),
				targetID:   strPtr("173608"),
				itemName:   strPtr("Casa Nr. 95"),
				amount:     int64Ptr(500000000),
				detail:     strPtr("bought Casa Nr. 95 from player 173608 for 500000000$"),
			},
		},
		{
			name: "sold business",
			line: "Jucatorul Ion(5) a vandut Afacerea Nr. 12 catre jucatorul cu ID 99 pentru suma de 2.000.000$.",
			want: expectation{
				actionType: model.ActionPropertySold,
				actorID:    "5",
				actorName:  strPtr("Ion"),
				targetID:   strPtr("99"),
				itemName:   strPtr("Afacerea Nr. 12"),
				amount:     int64Ptr(2000000),
				detail:     strPtr("sold Afacerea Nr. 12 to player 99 for 2000000$"),
			},
		},
	})
}

func TestRule_Vehicle(t *testing.T) {
	runRuleCases(t, []ruleCase{
		{
			name: "bullet before the marker",
			line: "• Jucatorul Ion(12) a cumparat Infernus",
			want: expectation{
				actionType: model.ActionVehicleBought,
				actorID:    "12",
				actorName:  strPtr("Ion"),
				detail:     strPtr("bought Infernus"),
			},
		},
		{
			name: "bought",
			line: "Jucatorul Ion(5) a cumparat un Bravado Banshee.",
			want: expectation{
				actionType: model.ActionVehicleBought,
				actorID:    "5",
				actorName:  strPtr("Ion"),
				detail:     strPtr("bought un Bravado Banshee"),
			},
		},
		{
			name: "sold",
			line: "Jucatorul Ion(5) a vandut vehiculul Pegassi Zentorno.",
			want: expectation{
				actionType: model.ActionVehicleSold,
				actorID:    "5",
				actorName:  strPtr("Ion"),
				detail:     strPtr("sold vehiculul Pegassi Zentorno"),
			},
		},
		{
			name: "concatenated second action is cut off",
			line: "Jucatorul Ion(5) a cumparat un Bravado Banshee. Jucatorul Vasile(6) a vandut o casa.",
			want: expectation{
				actionType: model.ActionVehicleBought,
				actorID:    "5",
				actorName:  strPtr("Ion"),
				detail:     strPtr("bought un Bravado Banshee"),
			},
		},
	})
}

func TestRule_VehicleContract(t *testing.T) {
	runRuleCases(t, []ruleCase{
		{
			name: "token first",
			line: "Contract[email protected](137592) Mihai(137922). ('137592' [Bravado Harger 69, ], '137922' [])",
			want: expectation{
				actionType: model.ActionVehicleContract,
				actorID:    "137592",
				actorName:  strPtr("[email protected]"),
				targetID:   strPtr("137922"),
				targetName: strPtr("Mihai"),
				itemName:   strPtr("Bravado Harger 69"),
				detail:     strPtr("contract between [email protected] and Mihai: Bravado Harger 69"),
			},
		},
		{
			name: "name first without separator",
			line: "Contract Mihai(137922)[email protected](137592). ('137922' [], '137592' [Bravado Harger 69, ])",
			want: expectation{
				actionType: model.ActionVehicleContract,
				actorID:    "137922",
				actorName:  strPtr("Mihai"),
				targetID:   strPtr("137592"),
				targetName: strPtr("[email protected]"),
				itemName:   strPtr("Bravado Harger 69"),
				detail:     strPtr("contract between Mihai and [email protected]: Bravado Harger 69"),
			},
		},
		{
			name: "nameless first party",
			line: "Contract (131960) Crissu(168172). ('131960' [Issi Weeny XC, ], '168172' [])",
			want: expectation{
				actionType: model.ActionVehicleContract,
				actorID:    "131960",
				targetID:   strPtr("168172"),
				targetName: strPtr("Crissu"),
				itemName:   strPtr("Issi Weeny XC"),
				detail:     strPtr("contract between 131960 and Crissu: Issi Weeny XC"),
			},
		},
		{
			name: "arrow without vehicles",
			line: "Contract Ion(1) -> Vasile(2).",
			want: expectation{
				actionType: model.ActionVehicleContract,
				actorID:    "1",
				actorName:  strPtr("Ion"),
				targetID:   strPtr("2"),
				targetName: strPtr("Vasile"),
				detail:     strPtr("contract between Ion and Vasile"),
			},
		},
	})
}

func TestRule_TwoPartyEvents(t *testing.T) {
	runRuleCases(t, []ruleCase{
		{
			name: "trade",
			line: "Tradeul dintre jucatorii Ion(1) si Vasile(2) a fost finalizat.",
			want: expectation{
				actionType: model.ActionTrade,
				actorID:    "1",
				actorName:  strPtr("Ion"),
				targetID:   strPtr("2"),
				targetName: strPtr("Vasile"),
				detail:     strPtr("trade between Ion and Vasile: a fost finalizat."),
			},
		},
		{
			name: "license plate sale with diacritics",
			line: "Vânzarea de plăcuțe dintre jucătorii Ion(1) și Vasile(2) pentru 5.000.000$",
			want: expectation{
				actionType: model.ActionLicensePlateSale,
				actorID:    "1",
				actorName:  strPtr("Ion"),
				targetID:   strPtr("2"),
				targetName: strPtr("Vasile"),
				detail:     strPtr("license plate sale between Ion and Vasile: pentru 5.000.000$"),
			},
		},
		{
			name: "gambling win with amount",
			line: "Jucatorul Ion(1) a castigat suma de 500.000$ impotriva lui Vasile(2) la zaruri.",
			want: expectation{
				actionType: model.ActionGamblingWin,
				actorID:    "1",
				actorName:  strPtr("Ion"),
				targetID:   strPtr("2"),
				targetName: strPtr("Vasile"),
				amount:     int64Ptr(500000),
				detail:     strPtr("won 500000$ against Vasile: la zaruri."),
			},
		},
		{
			name: "gambling win without amount",
			line: "Jucătorul Ion(1) a câștigat împotriva lui Vasile(2)",
			want: expectation{
				actionType: model.ActionGamblingWin,
				actorID:    "1",
				actorName:  strPtr("Ion"),
				targetID:   strPtr("2"),
				targetName: strPtr("Vasile"),
				detail:     strPtr("won against Vasile"),
			},
		},
	})
}

func TestRule_Other(t *testing.T) {
	runRuleCases(t, []ruleCase{
		{
			name: "trailing text becomes detail",
			line: "Jucatorul Ion(5) s-a logat pe server.",
			want: expectation{
				actionType: model.ActionOther,
				actorID:    "5",
				actorName:  strPtr("Ion"),
				detail:     strPtr("s-a logat pe server."),
			},
		},
		{
			name: "self targeted transfer falls back",
			line: "Jucatorul Ion(5) ia dat lui Ion(5) x3 Paine",
			want: expectation{
				actionType: model.ActionOther,
				actorID:    "5",
				actorName:  strPtr("Ion"),
				detail:     strPtr("ia dat lui Ion(5) x3 Paine"),
			},
		},
		{
			name: "reference without trailing text",
			line: "Jucatorul Ion(5)",
			want: expectation{
				actionType: model.ActionOther,
				actorID:    "5",
				actorName:  strPtr("Ion"),
			},
		},
	})
}

func TestDefaultRules_Order(t *testing.T) {
	rules := DefaultRules()
	require.Len(t, rules, 18)

	position := make(map[string]int, len(rules))
	for i, r := range rules {
		position[r.Name] = i
		assert.NotEmpty(t, r.Anchors, r.Name)
	}

	assert.Less(t, position["property_bought"], position["vehicle_bought"])
	assert.Less(t, position["property_sold"], position["vehicle_sold"])
	assert.Equal(t, len(rules)-1, position["other"], "generic rule must be last")

	// Each call returns an independent slice.
	rules[0].Name = "changed"
	assert.Equal(t, "warning_received", DefaultRules()[0].Name)
}
