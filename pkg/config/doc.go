// Package config loads mock proxy configuration files.
//
// A configuration file is YAML (JSON is accepted as a subset) describing
// the listen address, timeouts, logging, the CA directory and the mocks to
// register, in order:
//
//	listen: 127.0.0.1:1234
//	readTimeout: 10s
//	log: {level: info, format: text, file: proxy.log}
//	ca: {dir: ./ca}
//	mocks:
//	  - method: GET
//	    path: /ping
//	    headers:
//	      - {name: Content-Type, value: text/plain}
//	    body: pong
//	  - method: POST
//	    path: /submit
//	    status: 201
//	    json: {ok: true}
//	  - method: GET
//	    path: /geocode
//	    bodyFile: testdata/geocode.json
//
// Loading a file:
//
//	cfg, err := config.Load("mockproxy.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	mocks, err := cfg.Mocks()
//
// Header order is preserved exactly. Relative bodyFile, ca.dir and log.file
// paths resolve against the directory of the configuration file.
package config
