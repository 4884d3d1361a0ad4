package printer

import "strings"

var primitiveNames = map[byte]string{
	'Z': "boolean",
	'B': "byte",
	'C': "char",
	'S': "short",
	'I': "int",
	'J': "long",
	'F': "float",
	'D': "double",
	'V': "void",
}

// TypeName formats a field descriptor as a Java type.
func TypeName(desc string) string {
	dims := 0
	for dims < len(desc) && desc[dims] == '[' {
		dims++
	}
	base := desc[dims:]
	name := base
	switch {
	case len(base) == 1:
		if p, ok := primitiveNames[base[0]]; ok {
			name = p
		}
	case strings.HasPrefix(base, "L") && strings.HasSuffix(base, ";"):
		name = ClassName(base[1 : len(base)-1])
	}
	return name + strings.Repeat("[]", dims)
}

// ClassName shortens an internal class name to its simple name; array
// class names are formatted as types.
func ClassName(internal string) string {
	if strings.HasPrefix(internal, "[") {
		return TypeName(internal)
	}
	if i := strings.LastIndexByte(internal, '/'); i >= 0 {
		internal = internal[i+1:]
	}
	return strings.ReplaceAll(internal, "$", ".")
}
