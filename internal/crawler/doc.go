// Package crawler holds the shared vocabulary of the harvester: snapshot and
// article types, the collaborator interfaces, URL canonicalization, the link
// exclusion list, the article slug heuristic and the fetch retry policy.
//
// Nothing here performs I/O; fetchers, parsers and sinks live in their own
// packages and depend on this one.
package crawler
