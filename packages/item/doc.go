// Package item models the records served by the upstream content API.
//
// Every record shares one base shape; the kind field selects which of the
// optional fields are meaningful:
//   - story, job, poll: title, by, url, score, kids
//   - comment: parent, by, text, kids
//   - pollopt: parent (the poll), by, text, score
//
// Optional fields are pointers so an absent field is never confused with a
// zero value. The JSON literal null decodes to a nil *Item, which is how the
// upstream reports unknown or malformed IDs.
package item
