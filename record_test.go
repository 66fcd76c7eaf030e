package tagpack

import (
	"reflect"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordFixture struct {
	ID         int64    `msgpack:"id"`
	Name       string   `msgpack:"name,default=anonymous"`
	Active     bool     `msgpack:"active,default=true"`
	Tags       []string `msgpack:"tags,default="`
	Ignored    string   `msgpack:"-"`
	unexported int
}

func TestDescriptorForCaching(t *testing.T) {
	typ := reflect.TypeOf(recordFixture{})
	d1 := descriptorFor(typ)
	d2 := descriptorFor(typ)
	assert.Same(t, d1, d2)
}

func TestBuildDescriptorSkipsIgnoredAndUnexported(t *testing.T) {
	d := descriptorFor(reflect.TypeOf(recordFixture{}))
	assert.Equal(t, []string{"id", "name", "active", "tags"}, d.fields)
}

func TestBuildDescriptorRequiredVsDefaulted(t *testing.T) {
	d := descriptorFor(reflect.TypeOf(recordFixture{}))
	idx := func(name string) int {
		i, ok := d.indexOf(name, 0)
		require.True(t, ok)
		return i
	}
	assert.True(t, d.required[idx("id")])
	assert.False(t, d.required[idx("name")])
	assert.False(t, d.required[idx("active")])
	assert.False(t, d.required[idx("tags")])
}

func TestDescriptorIndexOfRotatingCursor(t *testing.T) {
	d := descriptorFor(reflect.TypeOf(recordFixture{}))

	i, ok := d.indexOf("active", 2)
	require.True(t, ok)
	assert.Equal(t, 2, i)

	// Starting past "active" should wrap around and still find it.
	i, ok = d.indexOf("name", 3)
	require.True(t, ok)
	assert.Equal(t, 1, i)

	_, ok = d.indexOf("missing", 0)
	assert.False(t, ok)
}

func TestFillDefaultScalars(t *testing.T) {
	d := descriptorFor(reflect.TypeOf(recordFixture{}))
	var rec recordFixture
	base := unsafe.Pointer(&rec)

	nameIdx, _ := d.indexOf("name", 0)
	activeIdx, _ := d.indexOf("active", 0)
	tagsIdx, _ := d.indexOf("tags", 0)

	d.fillDefault(base, nameIdx)
	d.fillDefault(base, activeIdx)
	d.fillDefault(base, tagsIdx)

	assert.Equal(t, "anonymous", rec.Name)
	assert.True(t, rec.Active)
	// A bare "default=" tag option parses to the field's zero value; for a
	// slice that's nil, which fillDefault shares by identity since nil has
	// no backing array to alias across instances.
	assert.Nil(t, rec.Tags)
}

type mutableDefaultFixture struct {
	Items []int `msgpack:"items,default="`
}

func TestFillDefaultIsPerInstance(t *testing.T) {
	d := descriptorFor(reflect.TypeOf(mutableDefaultFixture{}))
	idx, _ := d.indexOf("items", 0)

	var a, b mutableDefaultFixture
	d.fillDefault(unsafe.Pointer(&a), idx)
	d.fillDefault(unsafe.Pointer(&b), idx)

	a.Items = append(a.Items, 1)
	assert.Empty(t, b.Items, "mutating one instance's default must not affect another's")
}

type registeredDefaultFixture struct {
	Roles []string       `msgpack:"roles,default="`
	Limit map[string]int `msgpack:"limit,default="`
	Owner *ownerFixture  `msgpack:"owner,default="`
}

type ownerFixture struct {
	Name string `msgpack:"name"`
}

func init() {
	RegisterDefault[registeredDefaultFixture]("roles", []string{"viewer", "editor"})
	RegisterDefault[registeredDefaultFixture]("limit", map[string]int{"requests": 100})
	RegisterDefault[registeredDefaultFixture]("owner", &ownerFixture{Name: "system"})
}

func TestRegisterDefaultPopulatesNonEmptyDefault(t *testing.T) {
	d := descriptorFor(reflect.TypeOf(registeredDefaultFixture{}))

	var rec registeredDefaultFixture
	base := unsafe.Pointer(&rec)
	for i := range d.fields {
		d.fillDefault(base, i)
	}

	assert.Equal(t, []string{"viewer", "editor"}, rec.Roles)
	assert.Equal(t, map[string]int{"requests": 100}, rec.Limit)
	require.NotNil(t, rec.Owner)
	assert.Equal(t, "system", rec.Owner.Name)
}

func TestRegisterDefaultDeepCopiesPerInstance(t *testing.T) {
	d := descriptorFor(reflect.TypeOf(registeredDefaultFixture{}))
	rolesIdx, _ := d.indexOf("roles", 0)
	limitIdx, _ := d.indexOf("limit", 0)
	ownerIdx, _ := d.indexOf("owner", 0)

	var a, b registeredDefaultFixture
	for _, idx := range []int{rolesIdx, limitIdx, ownerIdx} {
		d.fillDefault(unsafe.Pointer(&a), idx)
		d.fillDefault(unsafe.Pointer(&b), idx)
	}

	a.Roles = append(a.Roles, "admin")
	a.Limit["requests"] = 999
	a.Owner.Name = "mutated"

	assert.Equal(t, []string{"viewer", "editor"}, b.Roles, "slice default must not alias across instances")
	assert.Equal(t, 100, b.Limit["requests"], "map default must not alias across instances")
	assert.Equal(t, "system", b.Owner.Name, "pointer default must not alias across instances")
	assert.NotSame(t, a.Owner, b.Owner)
}

func TestFieldValueReadWrite(t *testing.T) {
	d := descriptorFor(reflect.TypeOf(recordFixture{}))
	var rec recordFixture
	base := unsafe.Pointer(&rec)

	idIdx, _ := d.indexOf("id", 0)
	d.fieldValue(base, idIdx).SetInt(42)
	assert.Equal(t, int64(42), rec.ID)
}

func TestDescriptorName(t *testing.T) {
	d := descriptorFor(reflect.TypeOf(recordFixture{}))
	assert.Equal(t, "recordFixture", d.name())
}
