// Package appconf is the configuration collaborator of the ath2 build
// orchestrator.
//
// It locates the app and module configuration files of a front-end project,
// decodes them, applies defaults and produces the immutable
// model.BuildConfiguration consumed by the orchestrator.
//
// Three file formats are accepted, chosen by extension:
//
//   - ath2.app.json / ath2.app.jsonc: JSON with comments, stripped with
//     github.com/tidwall/jsonc before decoding with encoding/json
//   - ath2.app.yaml / ath2.app.yml: decoded with gopkg.in/yaml.v3
//   - ath2.app.toml: decoded with github.com/BurntSushi/toml
//
// Module directories carry an ath2.module.* file of the same formats and must
// live directly under an app root. Per-user compiler defaults are read from
// $XDG_CONFIG_HOME/ath2/defaults.yaml, and an optional .env file at the app
// root supplies build-time environment variables.
package appconf
