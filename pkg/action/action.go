// Package action builds the signals dispatched into a store: namespaced action
// types and flux-standard actions.
package action

import "strings"

const separator = "/"

type Type string

func (t Type) String() string { return string(t) }

// Action is a flux-standard action. Error is set when Payload is an error.
type Action struct {
	Type    Type `json:"type"`
	Payload any  `json:"payload,omitempty"`
	Error   bool `json:"error,omitempty"`
}

// New builds an action of type t. An error payload marks the action as failed.
func New(t Type, payload any) Action {
	_, isErr := payload.(error)
	return Action{Type: t, Payload: payload, Error: isErr}
}

// Err returns the payload as an error for failed actions.
func (a Action) Err() error {
	if !a.Error {
		return nil
	}
	err, _ := a.Payload.(error)
	return err
}

type Namespace struct {
	prefix string
}

func NewNamespace(prefix string) Namespace {
	return Namespace{prefix: strings.Trim(prefix, separator)}
}

// Type joins the namespace prefix and parts: Type("INPUT", "SUBMIT") in the
// CHECKOUT namespace is CHECKOUT/INPUT/SUBMIT.
func (n Namespace) Type(parts ...string) Type {
	all := make([]string, 0, len(parts)+1)
	if n.prefix != "" {
		all = append(all, n.prefix)
	}
	all = append(all, parts...)
	return Type(strings.Join(all, separator))
}

// Group is the SUBMIT/ACCEPT/REJECT triple of an async sub-domain.
type Group struct {
	Submit Type
	Accept Type
	Reject Type
}

func (n Namespace) Group(domain string) Group {
	return Group{
		Submit: n.Type(domain, "SUBMIT"),
		Accept: n.Type(domain, "ACCEPT"),
		Reject: n.Type(domain, "REJECT"),
	}
}

// Has reports whether t belongs to the group.
func (g Group) Has(t Type) bool {
	return t == g.Submit || t == g.Accept || t == g.Reject
}
