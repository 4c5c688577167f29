// Package document parses settings files into a format-neutral tree of
// nodes and renders such trees back to text. YAML (and JSON through the YAML
// parser) and HCL native syntax are supported; the schema that gives the tree
// meaning lives elsewhere.
package document
