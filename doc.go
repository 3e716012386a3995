// Package ldapc is a synchronous LDAP v3 client library (RFC 4511).
//
// It lets a caller open a byte-stream transport to a directory server,
// authenticate via one of several bind methods, run a streaming search
// decoded into caller-defined record types, and cleanly unbind. It is an
// embeddable library, not a daemon: every operation blocks the calling
// goroutine, and the caller owns the connection's lifetime and I/O thread.
//
// # Architecture
//
//	┌─────────────────────────────────────────────────────────┐
//	│  ldapc           Connection typestate, binds, search,    │
//	│                  entry mapping, error taxonomy           │
//	├─────────────────────────────────────────────────────────┤
//	│  internal/security  Kerberos/NTLM/SSPI token exchange     │
//	├─────────────────────────────────────────────────────────┤
//	│  internal/wire      BER encode/decode of LDAP PDUs       │
//	├─────────────────────────────────────────────────────────┤
//	│  internal/log       Redacting structured logger          │
//	└─────────────────────────────────────────────────────────┘
//
// # Quick start
//
//	conn, err := ldapc.ConnectTLS("ldap.example.com:636", "ldap.example.com", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	bound, err := ldapc.BindSimpleAuthenticated(conn, "cn=admin,dc=example,dc=com", "secret")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	results, err := ldapc.Search[Person](bound, "ou=people,dc=example,dc=com", ldapc.ScopeWholeSubtree,
//	    ldapc.NeverDerefAliases, ldapc.Equality{Attribute: "objectClass", Value: "person"})
//	for {
//	    person, err, ok := results.Next()
//	    if !ok {
//	        break
//	    }
//	    ...
//	}
//	bound.Unbind()
package ldapc
