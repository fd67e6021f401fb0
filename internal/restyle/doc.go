// Package restyle rewrites documentation-generator HTML so it follows
// Bootstrap's table and inline code conventions.
//
// A Restyler runs three steps over a parsed document, in order:
//
//   - tables matching the table selector lose the generator marker class,
//     gain the presentation classes and get their legacy border cleared;
//   - inline literals matching the inline code selector are re-tagged as
//     <code>, unless their parent carries the reference class;
//   - a single script calling the search component's setup entry point on
//     DOMContentLoaded is appended to <body>.
//
// Every step is idempotent, so restyling an already restyled page reports no
// changes.
package restyle
