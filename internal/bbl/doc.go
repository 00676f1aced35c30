// Package bbl parses LaTeX-generated .bbl bibliography files back into
// structured bibliography entries.
//
// A .bbl file is the formatted output of BibTeX: each reference is a
// \bibitem followed by typeset text, and the original field structure is
// gone. This package recovers what it can with keyword and pattern
// heuristics:
//
//   - The document is split on \bibitem[label]{key}; text before the first
//     \bibitem (the thebibliography preamble) is ignored.
//   - Each item is cleaned of \newblock and font commands.
//   - The entry type is inferred from keywords (e.g., "PhD thesis",
//     "Proceedings", "journal").
//   - Fields (author, title, year, pages, volume, ...) are extracted with
//     regular expressions, in a fixed order.
//
// The heuristics favour plain/alpha/unsrt style output. Results for other
// bibliography styles are best effort.
package bbl
