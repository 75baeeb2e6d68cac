// Package query covers natural-language query handling ahead of dispatch:
// input validation, container-id spotting, intent classification, cache
// keys and the query log.
package query
