// Package domain models the articles, classifications, and geolocated events
// that flow through the geomonitor batch jobs.
//
// # Sources
//
// News articles come from a NewsAPI-style "everything" search. Each article
// carries a title, a short description, a source label, a publication time,
// and a URL. Tropical cyclone alerts come from the GDACS feed and are mapped
// onto the same [Event] shape so both collections can share one merge path.
//
// # Event Keys
//
// Events are keyed by "<prefix>_<unix seconds>_<index>", where the prefix is
// "news" or "hurricane", the seconds are taken once per run, and the index is
// the position of the item in the fetched batch. Keys are unique within a run
// and across runs started at least one second apart. See [EventKey].
//
// # Timestamps
//
// Event timestamps are kept as strings because upstream providers emit a mix
// of RFC 3339 with offsets, "Z"-suffixed values, and naive local-less values.
// [ParseTimestamp] accepts all three and treats naive values as UTC. Events
// whose timestamp does not parse are dropped from the store during retention.
//
// # Classification
//
// Each article is labelled with a show flag, a [Topic] drawn from a closed
// set, and an importance on a 1–5 scale. When no classification is available
// the article is shown with topic "other" and importance 2.
//
// # Place Names
//
// Place names are compared after [NormalizeName]: Unicode NFC composition,
// surrounding whitespace removed, and a full Unicode lowercase fold. The
// gazetteer, the geocode cache, and the keyword scan all key on this form.
package domain
