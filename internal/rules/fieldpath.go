// internal/rules/fieldpath.go
package rules

import "strings"

/*
 * Field path resolution for JSON documents.
 *
 * Paths are dot-separated object keys ("a.b.c"). Each segment requires the
 * current node to be an object; reading through anything else fails with
 * NotAnObjectError naming the segment and the node's type. A missing key is
 * not an error and resolves to nil, so "x.y" on {} fails at "y" only after
 * "x" resolved to null.
 *
 * The empty path resolves to the document itself. There is no escaping and
 * no array indexing: "a.0" reads key "0" of object "a".
 */

// FollowPath resolves path against doc.
func FollowPath(path string, doc any) (any, error) {
	if path == "" {
		return doc, nil
	}

	current := doc
	for _, segment := range strings.Split(path, ".") {
		obj, ok := asObject(current)
		if !ok {
			return nil, &NotAnObjectError{Field: segment, Kind: TypeName(current)}
		}
		// Missing keys yield nil.
		current = obj[segment]
	}
	return current, nil
}
