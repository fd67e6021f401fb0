// Package site applies the restyler to every page of a rendered site.
//
// Pages are rewritten in place with a temp-file-and-rename so a reader never
// sees a half written page. With incremental mode on, the sha256 of each page
// after processing is kept in the state store and pages whose content still
// matches are skipped without parsing.
package site
