// Package dal imports every store adapter so it registers itself.
//
//	import _ "github.com/dropDatabas3/socialauth/internal/store/adapters/dal"
package dal

import (
	_ "github.com/dropDatabas3/socialauth/internal/store/adapters/memory"
	_ "github.com/dropDatabas3/socialauth/internal/store/adapters/pg"
)
