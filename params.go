package monetdbe

import (
	"reflect"
)

// ParamMode values reported by ParameterMetaData.ParameterMode. The engine
// only has input parameters.
const (
	ParamModeUnknown = 0
	ParamModeIn      = 1
)

// paramSlot is the last value bound to one parameter, already coerced to
// the Go type of the native bind call it was sent with. A nil value is
// SQL NULL of type nullType.
type paramSlot struct {
	value    interface{}
	nullType ColumnType
	set      bool
}

// parameterSet holds one slot per statement parameter.
type parameterSet struct {
	types  []ColumnType
	scales []int32
	slots  []paramSlot
}

func newParameterSet(types []ColumnType, scales []int32) *parameterSet {
	p := &parameterSet{types: types, slots: make([]paramSlot, len(types))}
	if len(scales) == len(types) {
		p.scales = scales
	}
	p.reset()
	return p
}

func (p *parameterSet) count() int {
	return len(p.slots)
}

// check validates a 1-based parameter index.
func (p *parameterSet) check(index int) error {
	if index < 1 || index > len(p.slots) {
		return newError(CodeParameterIndexOutOfRange, "parameter index %d out of range [1,%d]", index, len(p.slots))
	}
	return nil
}

// reset puts an unset NULL of the declared type in every slot.
func (p *parameterSet) reset() {
	for i := range p.slots {
		p.slots[i] = paramSlot{nullType: p.types[i]}
	}
}

func (p *parameterSet) snapshot() []paramSlot {
	out := make([]paramSlot, len(p.slots))
	copy(out, p.slots)
	return out
}

// ParameterMetaData describes the parameters of a PreparedStatement.
// Parameter indexes are 1-based.
type ParameterMetaData struct {
	stmt *PreparedStatement
}

func (m *ParameterMetaData) nativeType(index int) (ColumnType, error) {
	if err := m.stmt.checkOpen(); err != nil {
		return TypeUnknown, err
	}
	if err := m.stmt.params.check(index); err != nil {
		return TypeUnknown, err
	}
	return m.stmt.params.types[index-1], nil
}

// ParameterCount returns the number of parameters.
func (m *ParameterMetaData) ParameterCount() int {
	if m.stmt.params == nil {
		return 0
	}
	return m.stmt.params.count()
}

// ParameterType returns the SQL type the engine expects for a parameter.
func (m *ParameterMetaData) ParameterType(index int) (SQLType, error) {
	t, err := m.nativeType(index)
	if err != nil {
		return 0, err
	}
	return ColumnTypeToSQLType(t)
}

// ParameterTypeName returns the engine's name of the parameter's type.
func (m *ParameterMetaData) ParameterTypeName(index int) (string, error) {
	t, err := m.nativeType(index)
	if err != nil {
		return "", err
	}
	return t.String(), nil
}

// NativeType returns the native type the engine expects for a parameter.
func (m *ParameterMetaData) NativeType(index int) (ColumnType, error) {
	return m.nativeType(index)
}

// Scale returns the declared decimal scale of a parameter, 0 when the
// engine reported none.
func (m *ParameterMetaData) Scale(index int) (int, error) {
	if _, err := m.nativeType(index); err != nil {
		return 0, err
	}
	if m.stmt.params.scales == nil {
		return 0, nil
	}
	return int(m.stmt.params.scales[index-1]), nil
}

// IsSigned reports whether the parameter's SQL type is signed.
func (m *ParameterMetaData) IsSigned(index int) (bool, error) {
	t, err := m.ParameterType(index)
	if err != nil {
		return false, err
	}
	return IsSigned(t, ""), nil
}

// ParameterGoType returns the Go type a parameter is read back as.
func (m *ParameterMetaData) ParameterGoType(index int) (reflect.Type, error) {
	t, err := m.ParameterType(index)
	if err != nil {
		return nil, err
	}
	k, err := DefaultHostKind(t)
	if err != nil {
		return nil, err
	}
	return k.GoType(), nil
}

// ParameterMode always reports ParamModeIn.
func (m *ParameterMetaData) ParameterMode(index int) (int, error) {
	if _, err := m.nativeType(index); err != nil {
		return ParamModeUnknown, err
	}
	return ParamModeIn, nil
}

// IsNullable always reports NullableUnknown.
func (m *ParameterMetaData) IsNullable(index int) (Nullability, error) {
	if _, err := m.nativeType(index); err != nil {
		return NullableUnknown, err
	}
	return NullableUnknown, nil
}

// Value returns the value last bound to a parameter after coercion, and
// whether one has been bound since the last reset. SQL NULL is nil.
func (m *ParameterMetaData) Value(index int) (interface{}, bool, error) {
	if _, err := m.nativeType(index); err != nil {
		return nil, false, err
	}
	slot := m.stmt.params.slots[index-1]
	return slot.value, slot.set, nil
}
