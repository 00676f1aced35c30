// Package config handles discovery, parsing, and validation of the optional
// bbl2bib configuration file.
//
// Two syntaxes are accepted:
//
//   - YAML (.bbl2bib.yaml / .bbl2bib.yml), parsed with gopkg.in/yaml.v3
//   - JSON with comments (.bbl2bib.json / .bbl2bib.jsonc), stripped with
//     github.com/tidwall/jsonc and parsed with encoding/json
//
// Values from the file are layered over built-in defaults; command-line flags
// that the user sets explicitly are layered over the file by the cli package.
package config
