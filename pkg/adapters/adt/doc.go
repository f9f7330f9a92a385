// Package adt is the ABAP Development Tools transport and the per-kind capability sets built on it.
//
// The Transport carries the stateful session (cookies and CSRF token) of the remote system.
// Capabilities translate each edit primitive into exactly one ADT request.
package adt
