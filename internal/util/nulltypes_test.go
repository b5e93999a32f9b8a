// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import "testing"

func TestNullStringFromValue(t *testing.T) {
	got := NullStringFromValue("hello")
	if !got.Valid || got.String != "hello" {
		t.Errorf("NullStringFromValue(hello) = %+v", got)
	}

	got = NullStringFromValue("")
	if got.Valid {
		t.Errorf("NullStringFromValue(\"\") = %+v, want invalid", got)
	}
}
