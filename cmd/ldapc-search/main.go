// Command ldapc-search is an example LDAP search client.
//
// Password can be provided via:
//   - -pass flag (least secure, visible in process list)
//   - LDAPC_PASSWORD environment variable (recommended)
//   - stdin prompt (if neither flag nor env var is set)
//
// The -filter flag is accepted but not parsed: every search uses the
// filter (objectClass=*) and prints every entry under -base.
//
// Usage:
//
//	ldapc-search -addr ldap.example.com:389 -binddn "cn=admin,dc=example,dc=com" -base "dc=example,dc=com"
//
// Examples:
//
//	# Using environment variable (recommended)
//	export LDAPC_PASSWORD='secret'
//	ldapc-search -addr dc1:389 -binddn admin@example.com -base "dc=example,dc=com"
//
//	# Anonymous bind, TLS
//	ldapc-search -addr dc1:636 -tls -base "dc=example,dc=com" -anon
package main

import (
	"bufio"
	"crypto/tls"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/smnsjas/go-ldapc"
	internallog "github.com/smnsjas/go-ldapc/internal/log"
)

func main() {
	var (
		addr           = flag.String("addr", "localhost:389", "LDAP server address (host:port)")
		useTLS         = flag.Bool("tls", false, "connect over TLS (ldaps)")
		insecure       = flag.Bool("insecure", false, "skip TLS certificate verification")
		bindDN         = flag.String("binddn", "", "bind DN for a simple bind")
		pass           = flag.String("pass", "", "bind password (prefer LDAPC_PASSWORD)")
		anon           = flag.Bool("anon", false, "bind anonymously instead of simple bind")
		base           = flag.String("base", "", "search base DN")
		filter         = flag.String("filter", "(objectClass=*)", "ignored: every search uses (objectClass=*); the parenthesized filter syntax is not parsed")
		scope          = flag.String("scope", "sub", "search scope: base, one, or sub")
		logFile        = flag.String("logfile", "", "write redacted JSON logs to this rotating file instead of stderr")
		logMaxSize     = flag.Int64("log-max-size", 10<<20, "rotate -logfile once it exceeds this many bytes")
		logMaxBackups  = flag.Int("log-max-backups", 5, "number of rotated -logfile generations to keep")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if *logFile != "" {
		fileLogger, err := internallog.NewRotatingLogger(*logFile, *logMaxSize, *logMaxBackups)
		if err != nil {
			logger.Error("ldapc-search: failed to open -logfile", "path", *logFile, "error", err)
			os.Exit(2)
		}
		logger = fileLogger
	}

	if *base == "" {
		logger.Error("ldapc-search: -base is required")
		os.Exit(2)
	}
	_ = *filter // the parenthesized RFC 4515 filter grammar is out of scope; see DESIGN.md

	var ldapScope ldapc.Scope
	switch *scope {
	case "base":
		ldapScope = ldapc.ScopeBaseObject
	case "one":
		ldapScope = ldapc.ScopeSingleLevel
	case "sub":
		ldapScope = ldapc.ScopeWholeSubtree
	default:
		logger.Error("ldapc-search: invalid -scope", "scope", *scope)
		os.Exit(2)
	}

	if err := run(*addr, *useTLS, *insecure, *bindDN, *pass, *anon, *base, ldapScope, logger); err != nil {
		logger.Error("ldapc-search: failed", "error", err)
		os.Exit(1)
	}
}

// rawResult is the generic fallback record type: every attribute value as
// raw bytes, for a client that doesn't know its schema ahead of time.
type rawResult = ldapc.RawEntry

func run(addr string, useTLS, insecure bool, bindDN, pass string, anon bool, base string, scope ldapc.Scope, logger *slog.Logger) error {
	if useTLS {
		conn, err := ldapc.ConnectTLS(addr, hostOnly(addr), &tls.Config{InsecureSkipVerify: insecure}) //nolint:gosec // opt-in via -insecure
		if err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		return bindAndSearch(conn, bindDN, pass, anon, base, scope, logger)
	}

	conn, err := ldapc.Connect(addr)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	return bindAndSearchUnsafe(conn, bindDN, pass, anon, base, scope, logger)
}

func bindAndSearch(conn *ldapc.Conn[ldapc.Unbound, ldapc.ConfidentialStream], bindDN, pass string, anon bool, base string, scope ldapc.Scope, logger *slog.Logger) error {
	if anon {
		bound, err := ldapc.BindSimpleAnonymously(conn)
		if err != nil {
			return fmt.Errorf("anonymous bind: %w", err)
		}
		return search(bound, base, scope, logger)
	}
	password := resolvePassword(pass)
	bound, err := ldapc.BindSimpleAuthenticated(conn, bindDN, password)
	if err != nil {
		return fmt.Errorf("simple bind: %w", err)
	}
	return search(bound, base, scope, logger)
}

// bindAndSearchUnsafe is the plain-TCP path: a real deployment should
// prefer -tls, but the unsafe_ entry point lets this example run against
// a local test server with no certificate to hand.
func bindAndSearchUnsafe(conn *ldapc.Conn[ldapc.Unbound, ldapc.NotConfidential], bindDN, pass string, anon bool, base string, scope ldapc.Scope, logger *slog.Logger) error {
	if anon {
		bound, err := ldapc.BindSimpleAnonymously(conn)
		if err != nil {
			return fmt.Errorf("anonymous bind: %w", err)
		}
		return search(bound, base, scope, logger)
	}
	password := resolvePassword(pass)
	bound, err := ldapc.UnsafeBindSimpleAuthenticated(conn, bindDN, password)
	if err != nil {
		return fmt.Errorf("simple bind: %w", err)
	}
	return search(bound, base, scope, logger)
}

func search[S ldapc.BindState, C ldapc.Confidentiality](conn *ldapc.Conn[S, C], base string, scope ldapc.Scope, logger *slog.Logger) error {
	results, err := ldapc.Search[rawResult](conn, base, scope, ldapc.NeverDerefAliases, ldapc.Present{Attribute: "objectClass"})
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	count := 0
	for entry, err, ok := results.Next(); ok; entry, err, ok = results.Next() {
		if err != nil {
			logger.Warn("ldapc-search: entry error", "error", err)
			continue
		}
		count++
		fmt.Printf("dn: %s\n", entry.DN)
		for _, attr := range entry.Attributes {
			for _, v := range attr.Values {
				fmt.Printf("%s: %s\n", attr.Type, v)
			}
		}
		fmt.Println()
	}
	if err := results.Err(); err != nil {
		return fmt.Errorf("search terminated: %w", err)
	}
	logger.Info("ldapc-search: done", "entries", count)
	return nil
}

func resolvePassword(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv("LDAPC_PASSWORD"); envValue != "" {
		return envValue
	}
	fmt.Fprint(os.Stderr, "Password: ")
	pwBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		reader := bufio.NewReader(os.Stdin)
		line, _ := reader.ReadString('\n')
		return strings.TrimRight(line, "\r\n")
	}
	return string(pwBytes)
}

func hostOnly(addr string) string {
	if idx := strings.LastIndex(addr, ":"); idx >= 0 {
		return addr[:idx]
	}
	return addr
}
