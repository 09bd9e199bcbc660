// Package normalize maps Python naming conventions to the language-neutral
// visibility and role vocabulary of the CMM.
package normalize

import (
	"strings"

	"github.com/cmmlang/cx/internal/cmm"
)

// DunderToRole maps magic method names to their abstract CMM role.
var DunderToRole = map[string]cmm.Role{
	"__init__":     cmm.RoleConstructor,
	"__new__":      cmm.RoleConstructor,
	"__str__":      cmm.RoleDisplay,
	"__repr__":     cmm.RoleDisplay,
	"__eq__":       cmm.RoleEquality,
	"__ne__":       cmm.RoleEquality,
	"__hash__":     cmm.RoleEquality,
	"__lt__":       cmm.RoleComparison,
	"__le__":       cmm.RoleComparison,
	"__gt__":       cmm.RoleComparison,
	"__ge__":       cmm.RoleComparison,
	"__len__":      cmm.RoleCollection,
	"__getitem__":  cmm.RoleCollection,
	"__setitem__":  cmm.RoleCollection,
	"__delitem__":  cmm.RoleCollection,
	"__iter__":     cmm.RoleCollection,
	"__contains__": cmm.RoleCollection,
	"__enter__":    cmm.RoleContext,
	"__exit__":     cmm.RoleContext,
	"__call__":     cmm.RoleCallable,
	"__del__":      cmm.RoleDestructor,
}

// Visibility applies the Python naming-convention rule: dunder names are
// public, any other name with a leading underscore is private, everything
// else is public.
func Visibility(name string) cmm.Visibility {
	if isDunder(name) {
		return cmm.VisibilityPublic
	}
	if strings.HasPrefix(name, "_") {
		return cmm.VisibilityPrivate
	}
	return cmm.VisibilityPublic
}

// FunctionRole returns the role for a function-or-method name: a dunder
// maps through DunderToRole, anything else is Method.
func FunctionRole(name string) cmm.Role {
	if role, ok := DunderToRole[name]; ok {
		return role
	}
	return cmm.RoleMethod
}

// ClassRole is always Class; it exists so callers don't special-case entity
// kinds when looking up a role.
func ClassRole() cmm.Role {
	return cmm.RoleClass
}

func isDunder(name string) bool {
	return len(name) >= 4 && strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__")
}
