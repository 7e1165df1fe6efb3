// Copyright 2025 momentics@gmail.com
// License: Apache 2.0

package role_test

import (
	"testing"

	"github.com/wstream-io/wstream/role"
)

func TestPolicyObligations(t *testing.T) {
	var c role.Client
	var s role.Server

	if !c.MasksOutgoing() || c.RequiresMaskedIncoming() {
		t.Fatal("client must mask outgoing and reject masked incoming")
	}
	if s.MasksOutgoing() || !s.RequiresMaskedIncoming() {
		t.Fatal("server must not mask outgoing and must require masked incoming")
	}
}

func TestClientMaskKeysAreFresh(t *testing.T) {
	var c role.Client
	k1 := c.NewMaskKey()
	k2 := c.NewMaskKey()
	k3 := c.NewMaskKey()
	if k1 == k2 && k2 == k3 {
		t.Fatal("three identical mask keys in a row")
	}
}
