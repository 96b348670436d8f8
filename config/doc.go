// Package config loads the entityindex YAML configuration.
//
// Values of the form ${VAR} and ${VAR:-default} are expanded from the
// environment before parsing. The entities section is an ordered mapping
// of entity type name to its table and indexing rules:
//
//	database:
//	  driver: sqlite
//	  dsn: ${DATABASE_DSN:-app.db}
//	entities:
//	  posts:
//	    fields:
//	      - title: {boost: 2}
//	      - body
//	    searchable_where: status = 'published'
//	  users:
//	    primary_key: uid
//	    optional_attributes: {field: profile}
//	    json_columns: [profile]
//
// BuildRegistry and EngineOptions turn a loaded Config into the values
// engine.New needs.
package config
