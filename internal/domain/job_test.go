package domain

import "testing"

func TestDepartmentDedupeKeyRoundTrip(t *testing.T) {
	key := DepartmentDedupeKey(123)
	if key != "dept:123" {
		t.Errorf("key = %s, want dept:123", key)
	}
	if len(key) > MaxDedupeKeyLen {
		t.Errorf("key length %d exceeds %d", len(key), MaxDedupeKeyLen)
	}

	id, ok := ParseDepartmentDedupeKey(key)
	if !ok || id != 123 {
		t.Errorf("parsed (%d, %v), want (123, true)", id, ok)
	}
}

func TestParseDepartmentDedupeKeyRejectsMalformed(t *testing.T) {
	testCases := []struct {
		name string
		key  string
	}{
		{name: "marker key", key: AllDepartmentsDedupeKey},
		{name: "missing id", key: "dept:"},
		{name: "non-numeric id", key: "dept:abc"},
		{name: "wrong prefix", key: "department:5"},
		{name: "empty", key: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok := ParseDepartmentDedupeKey(tc.key); ok {
				t.Errorf("key %q parsed, want rejection", tc.key)
			}
		})
	}
}

func TestFetchOptionsValidate(t *testing.T) {
	good := FetchOptions{DeptConcurrency: 2, DetailConcurrency: 4}
	if err := good.Validate(); err != nil {
		t.Errorf("valid options rejected: %v", err)
	}

	bad := FetchOptions{DeptConcurrency: 2}
	if err := bad.Validate(); err == nil {
		t.Error("expected error for zero detail concurrency")
	}
}
