// Package testing runs a mock proxy inside Go tests.
//
// A Fixture starts a proxy on a loopback port, registers mocks and hands
// out HTTP clients that route through it and trust its root certificate.
// The proxy is stopped when the test completes.
//
// # Basic Usage
//
//	func TestGeocode(t *testing.T) {
//	    f := mockproxytest.New(t)
//	    f.Mock("GET", "/maps/api/geocode/json").
//	        WithHeader("Content-Type", "application/json").
//	        WithBodyFromJSON(map[string]any{"status": "OK"})
//	    f.Start()
//
//	    client := geocode.NewClient(f.Client())
//	    // ...
//
//	    f.AssertCalled(t, "GET", "/maps/api/geocode/json")
//	}
//
// Start is a shorthand when the mocks are built up front:
//
//	f := mockproxytest.Start(t, mock.New("GET", "/ping").WithBody("pong"))
//
// # Child Processes
//
// Env returns an environment for exec.Cmd with HTTPS_PROXY and
// SSL_CERT_FILE pointing at the fixture. Go programs read these once per
// process, so setting them with os.Setenv inside a running test binary is
// not reliable; use Client or Transport there instead.
//
// # Certificates
//
// All fixtures in a test binary share one 2048-bit root CA, generated on
// first use.
package testing
