/*
Package session implements session management and persistence orchestration.

An ADT session (cookies and CSRF token) must never be shared by two concurrent
transactions. The Manager serializes work per session ID, optionally across
replicas through a distributed locker, and persists the session blob after
every call so the next request resumes the same server-side session.
*/
package session
