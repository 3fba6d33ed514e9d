// Package translate turns raw keyed messages into records.
//
// A Translator is resolved by name from the "translator" option. Every
// field a translator declares is present in the records it produces, set to
// nil when the message does not carry it, so planners can always address
// key and timestamp fields.
package translate
