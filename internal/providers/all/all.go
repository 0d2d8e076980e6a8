// Package all registra todos los providers soportados.
package all

import (
	_ "github.com/dropDatabas3/socialconnect/internal/providers/facebook"
	_ "github.com/dropDatabas3/socialconnect/internal/providers/generic"
	_ "github.com/dropDatabas3/socialconnect/internal/providers/github"
	_ "github.com/dropDatabas3/socialconnect/internal/providers/google"
	_ "github.com/dropDatabas3/socialconnect/internal/providers/twitter"
)
