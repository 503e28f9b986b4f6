package model

// WarningKind classifies loader anomalies. Anomalies never abort a load;
// they are surfaced and, where possible, repaired on the next save.
type WarningKind string

const (
	// WarnStrayFile is a regular file found in a column directory; it is
	// adopted into the card store and linked in place.
	WarnStrayFile WarningKind = "stray-file"
	// WarnBrokenLink is a symlink whose target card is missing.
	WarnBrokenLink WarningKind = "broken-link"
	// WarnBadColumnName is a column directory without a usable order
	// prefix; an order is synthesized and the directory renamed on save.
	WarnBadColumnName WarningKind = "bad-column-name"
	// WarnNonCanonical is a document that did not parse cleanly.
	WarnNonCanonical WarningKind = "non-canonical"
)

// Warning describes one anomaly found while loading a board.
type Warning struct {
	Kind    WarningKind
	Path    string // branch-relative path of the offending entry
	Message string
}

func (w Warning) String() string {
	return string(w.Kind) + " " + w.Path + ": " + w.Message
}
