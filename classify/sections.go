package classify

// sectionByRule is the static rule to section table. Rules not listed land
// in Noise.
var sectionByRule = map[string]Section{
	// identity
	"ID-001": Blockers,
	"ID-002": Systemic,
	"ID-003": Systemic,
	"ID-004": Noise,
	"ID-005": HighRisk,
	"ID-006": Compliance,
	"ID-007": Blockers,
	"ID-008": Compliance,
	"ID-009": Noise,
	"ID-010": Noise,
	"ID-011": Noise,
	"ID-012": Systemic,
	"ID-013": Noise,
	"ID-014": Compliance,

	// hours
	"HRS-001": Blockers,
	"HRS-002": Blockers,
	"HRS-003": HighRisk,
	"HRS-004": Volatility,
	"HRS-005": Compliance,
	"HRS-006": Volatility,
	"HRS-007": Noise,
	"HRS-008": Compliance,

	// earnings
	"ERN-001": Blockers,
	"ERN-002": Blockers,
	"ERN-003": HighRisk,
	"ERN-004": HighRisk,
	"ERN-005": Volatility,
	"ERN-006": Noise,
	"ERN-007": Compliance,
	"ERN-008": HighRisk,
	"ERN-009": Compliance,
	"ERN-010": Compliance,
	"ERN-011": HighRisk,
	"ERN-012": Noise,

	// taxes
	"TAX-001": Blockers,
	"TAX-002": HighRisk,
	"TAX-003": HighRisk,
	"TAX-004": Volatility,
	"TAX-005": Compliance,
	"TAX-006": Compliance,
	"TAX-007": Compliance,
	"TAX-008": Blockers,
	"TAX-009": Blockers,
	"TAX-010": Compliance,
	"TAX-011": Systemic,
	"TAX-012": Noise,

	// deductions
	"DED-001": Blockers,
	"DED-002": Volatility,
	"DED-003": Blockers,
	"DED-004": Compliance,
	"DED-005": Compliance,
	"DED-006": Noise,
	"DED-007": HighRisk,
	"DED-008": Compliance,
	"DED-009": Noise,

	// fundamental
	"FND-001": Blockers,
	"FND-002": Blockers,
	"FND-003": HighRisk,
	"FND-004": HighRisk,
	"FND-005": Blockers,
	"FND-006": Volatility,
	"FND-007": Compliance,
	"FND-008": Volatility,
	"FND-009": HighRisk,
	"FND-010": HighRisk,
	"FND-011": Noise,

	// cross
	"XC-001": Volatility,
	"XC-002": Noise,
	"XC-003": Systemic,
	"XC-004": Systemic,
	"XC-005": HighRisk,
}

// Mapped reports the table entry for ruleID, if any.
func Mapped(ruleID string) (Section, bool) {
	s, ok := sectionByRule[ruleID]
	return s, ok
}
