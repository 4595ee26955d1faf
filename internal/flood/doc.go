// Package flood holds the flood-risk rules used by the dashboard.
//
// # Risk classification
//
// Risk is derived from the rainfall reported for the last hour, in millimetres:
//
//	rainfall > 50        HIGH
//	25 < rainfall <= 50  MEDIUM
//	rainfall <= 25       LOW
//
// The rule is total. Negative and NaN values are not validated and fold into LOW.
//
// # Alerts
//
// Each (language, risk level) pair maps to one pre-written warning. Supported
// languages are English (en), Marathi (mr) and Hindi (hi). The table is indexed by
// the Language and RiskLevel enums, so every entry is addressed by a compile-time
// constant. Warnings reference the BMC (Brihanmumbai Municipal Corporation)
// disaster helpline 1916.
//
// # Vulnerable areas
//
// A small static list of low-lying neighbourhoods is shown on the dashboard map.
// It is reference data only and never changes at runtime.
package flood
