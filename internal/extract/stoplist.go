package extract

// builtinStopList is the fixed set of names a call target or type reference
// is never recorded against: common collection/coercion/introspection
// builtins, typing-module names, standard exception types, and the
// conventional receiver identifiers self/cls.
var builtinStopList = map[string]bool{
	// receivers
	"self": true,
	"cls":  true,

	// basic types / constructors
	"str": true, "int": true, "float": true, "bool": true, "list": true,
	"dict": true, "set": true, "tuple": true, "frozenset": true,
	"bytes": true, "bytearray": true, "object": true, "type": true,
	"complex": true, "None": true,

	// typing module
	"List": true, "Dict": true, "Set": true, "Tuple": true, "Optional": true,
	"Union": true, "Any": true, "Callable": true, "Iterable": true,
	"Iterator": true, "Generator": true, "Sequence": true, "Mapping": true,
	"MutableMapping": true, "Type": true, "Generic": true, "TypeVar": true,
	"Protocol": true, "Final": true, "Literal": true, "ClassVar": true,
	"Annotated": true,

	// exceptions
	"Exception": true, "BaseException": true, "ValueError": true,
	"TypeError": true, "KeyError": true, "IndexError": true,
	"AttributeError": true, "RuntimeError": true, "StopIteration": true,
	"AssertionError": true, "ImportError": true, "OSError": true,
	"IOError": true, "FileNotFoundError": true, "NotImplementedError": true,
	"ZeroDivisionError": true,

	// builtin functions
	"print": true, "len": true, "range": true, "enumerate": true,
	"zip": true, "map": true, "filter": true, "open": true, "input": true,
	"sorted": true, "reversed": true, "abs": true, "max": true, "min": true,
	"sum": true, "all": true, "any": true, "isinstance": true,
	"issubclass": true, "hasattr": true, "getattr": true, "setattr": true,
	"delattr": true, "callable": true, "repr": true, "id": true,
	"super": true, "vars": true, "iter": true, "next": true, "format": true,
}

func isStopped(name string) bool {
	return builtinStopList[name]
}
