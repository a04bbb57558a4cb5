// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cloud

import (
	"encoding/json"
	"fmt"
)

// Grant is an access grant statement on a layer version.
type Grant struct {
	StatementID string
	Action      string
	Principal   string
}

// Statement is one statement of a layer version's resource policy.
// Principal and Action may be a string, a list, or (Principal only) a
// {"AWS": ...} object; the accessors normalize them.
type Statement struct {
	Sid       string          `json:"Sid"`
	Effect    string          `json:"Effect"`
	Principal json.RawMessage `json:"Principal"`
	Action    json.RawMessage `json:"Action"`
	Resource  json.RawMessage `json:"Resource"`
}

// Policy is a layer version resource policy document.
type Policy struct {
	Version   string      `json:"Version"`
	ID        string      `json:"Id"`
	Statement []Statement `json:"Statement"`
}

// ParsePolicy decodes a raw policy document.
func ParsePolicy(raw string) (Policy, error) {
	var policy Policy
	if err := json.Unmarshal([]byte(raw), &policy); err != nil {
		return Policy{}, fmt.Errorf("parsing layer policy: %w", err)
	}
	return policy, nil
}

// Principals returns the statement's principals as a flat list.
func (s Statement) Principals() []string {
	var object struct {
		AWS json.RawMessage `json:"AWS"`
	}
	if err := json.Unmarshal(s.Principal, &object); err == nil && object.AWS != nil {
		return stringOrList(object.AWS)
	}
	return stringOrList(s.Principal)
}

// Actions returns the statement's actions as a flat list.
func (s Statement) Actions() []string {
	return stringOrList(s.Action)
}

func stringOrList(raw json.RawMessage) []string {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	return nil
}

// Matches reports whether statement is exactly this grant: same id, an
// Allow effect, and the single expected principal and action.
func (g Grant) Matches(statement Statement) bool {
	if statement.Sid != g.StatementID {
		return false
	}
	if statement.Effect != "" && statement.Effect != "Allow" {
		return false
	}
	principals := statement.Principals()
	actions := statement.Actions()
	return len(principals) == 1 && principals[0] == g.Principal &&
		len(actions) == 1 && actions[0] == g.Action
}
