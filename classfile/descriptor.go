package classfile

import "fmt"

// MethodType is a parsed method descriptor.
type MethodType struct {
	Params []string
	Return string
}

// ParseMethodDescriptor splits "(IJLjava/lang/String;)V" into parameter
// and return field descriptors.
func ParseMethodDescriptor(desc string) (MethodType, error) {
	if len(desc) < 3 || desc[0] != '(' {
		return MethodType{}, fmt.Errorf("bad method descriptor %q", desc)
	}
	var mt MethodType
	i := 1
	for i < len(desc) && desc[i] != ')' {
		n, err := fieldDescriptorLength(desc, i)
		if err != nil {
			return MethodType{}, err
		}
		mt.Params = append(mt.Params, desc[i:i+n])
		i += n
	}
	if i >= len(desc) {
		return MethodType{}, fmt.Errorf("bad method descriptor %q: missing ')'", desc)
	}
	mt.Return = desc[i+1:]
	if mt.Return == "" {
		return MethodType{}, fmt.Errorf("bad method descriptor %q: missing return type", desc)
	}
	return mt, nil
}

func fieldDescriptorLength(desc string, i int) (int, error) {
	start := i
	for i < len(desc) && desc[i] == '[' {
		i++
	}
	if i >= len(desc) {
		return 0, fmt.Errorf("bad descriptor %q at %d", desc, start)
	}
	switch desc[i] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 'V':
		return i + 1 - start, nil
	case 'L':
		for j := i; j < len(desc); j++ {
			if desc[j] == ';' {
				return j + 1 - start, nil
			}
		}
	}
	return 0, fmt.Errorf("bad descriptor %q at %d", desc, start)
}

// IsCategory2 reports whether a field descriptor occupies two stack slots.
func IsCategory2(desc string) bool {
	return desc == "J" || desc == "D"
}

// ClassNameToSignature converts an internal name (or array descriptor) into
// a field descriptor.
func ClassNameToSignature(internalName string) string {
	if len(internalName) > 0 && internalName[0] == '[' {
		return internalName
	}
	return "L" + internalName + ";"
}

// SignatureToClassName is the inverse of ClassNameToSignature.
func SignatureToClassName(sig string) string {
	if len(sig) > 2 && sig[0] == 'L' && sig[len(sig)-1] == ';' {
		return sig[1 : len(sig)-1]
	}
	return sig
}
