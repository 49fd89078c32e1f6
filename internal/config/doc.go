// Package config loads the configuration of an imago application.
//
// The project is described by imago.json at the project root:
//
//	{
//	  "name": "shop",
//	  "version": "1.4.0",
//	  "server": {"port": 3001, "host": "0.0.0.0"},
//	  "static": {"dir": "static", "prefix": "/static/"},
//	  "scripts": ["/static/js/app.js"],
//	  "environment": "environment.yaml"
//	}
//
// The settings that differ between deployments live in environment.yaml.
// Each top-level key names an environment; every environment is decoded
// over prod, so it only lists what it changes:
//
//	prod:
//	  $Server:
//	    port: 3001
//	  $Protocol: "https:"
//	  $Host: shop.example.com
//	  $Language:
//	    "*": en
//	    shop.example.cz: cs
//	  $Cache:
//	    enabled: true
//	    ttl: 60s
//	dev:
//	  $Debug: true
//	  $Protocol: "http:"
//	  $Host: localhost:3001
//
// # Usage
//
//	cfg, err := config.LoadFromWorkingDir()
//	if err != nil {
//	    errors.PrintError(err)
//	    os.Exit(1)
//	}
//	env, err := cfg.LoadEnvironment("dev")
package config
