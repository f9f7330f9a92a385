/*
Package adtkit coordinates edit transactions against the ABAP Development Tools (ADT)
REST API of an SAP system.

Creating or changing a repository object over ADT is never one call: the object must
be locked, its new source syntax checked, written, unlocked and usually activated.
A failure halfway must not leave the object locked in the backend. adtkit runs these
sequences as transactions with a guaranteed unlock, and exposes single-object
operations (check, activate, lock, unlock, delete) alongside them.

# Concept

The Engine holds no session state. Every call receives the *domain.Session that
carries the cookies and CSRF token of one stateful ADT session; the transport
refreshes it in place and the caller persists it (see pkg/session). Object kinds are
pluggable through ports.ObjectCapabilitySet; the default set speaks ADT over HTTP.

# Usage

	transport := adt.NewTransport("https://sap.example.com:44300",
		adt.WithCredentials("DEVELOPER", os.Getenv("ADT_PASSWORD")),
		adt.WithClient("100"),
	)
	eng, err := adtkit.New(transport)
	if err != nil {
		log.Fatal(err)
	}

	sess := domain.NewSession("cli")
	res, err := eng.Create(ctx, sess, domain.CreateRequest{
		Ref:         domain.NewObjectRef(domain.KindProgram, "ZHELLO", "$TMP"),
		Description: "Hello world",
		Source:      "REPORT zhello.\nWRITE 'Hello'.",
	})
	if err != nil {
		// errors.Is(err, domain.ErrLockConflict), domain.ErrCheckFailed, ...
		log.Fatal(err)
	}
	fmt.Println(res.Message)

# Surfaces

  - MCP tools: pkg/adapters/mcp (create_<kind>, update_<kind>, delete_<kind>, check_object, ...)
  - HTTP API: pkg/adapters/http (chi router, OpenAPI validated)
  - CLI: cmd/adtkit
*/
package adtkit
