package fqn

import (
	"path/filepath"
	"strings"
)

// Compute returns the canonical qualified name for a declaration.
// Format: <repo>.<rel_path_parts_dotted>.<name>
// Examples:
//   - myrepo.services.billing.InvoiceService
//   - myrepo.utils.helpers.format_price
func Compute(repo, relPath, name string) string {
	relPath = strings.TrimSuffix(relPath, filepath.Ext(relPath))
	parts := strings.Split(filepath.ToSlash(relPath), "/")

	// Python packages: foo/__init__.py declares module foo
	if len(parts) > 0 && parts[len(parts)-1] == "__init__" {
		parts = parts[:len(parts)-1]
	}
	// JS/TS index files collapse onto their directory
	if len(parts) > 0 && parts[len(parts)-1] == "index" {
		parts = parts[:len(parts)-1]
	}

	all := append([]string{repo}, parts...)
	if name != "" {
		all = append(all, name)
	}
	return strings.Join(all, ".")
}

// ModuleQN returns the qualified name for a module (file without member name).
func ModuleQN(repo, relPath string) string {
	return Compute(repo, relPath, "")
}

// Member returns the qualified name of a member owned by a parent declaration,
// e.g. Member("myrepo.svc.Invoice", "total") == "myrepo.svc.Invoice.total".
func Member(ownerQN, name string) string {
	return ownerQN + "." + name
}

// Prefix returns the owner portion of a qualified name:
// "myrepo.svc.Invoice.total" → "myrepo.svc.Invoice".
func Prefix(qn string) string {
	if idx := strings.LastIndex(qn, "."); idx >= 0 {
		return qn[:idx]
	}
	return qn
}

// SimpleName returns the last dot-separated segment of a qualified name.
func SimpleName(qn string) string {
	if idx := strings.LastIndex(qn, "."); idx >= 0 {
		return qn[idx+1:]
	}
	return qn
}
