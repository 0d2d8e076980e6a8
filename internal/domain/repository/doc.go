// Package repository define los contratos de persistencia de conexiones.
//
// Hay dos niveles:
//
//	┌─────────────────────────────────────────────────────┐
//	│     social / controllers (filter, connect, signin)   │
//	└─────────────────────────────────────────────────────┘
//	                        │
//	                        ▼
//	┌─────────────────────────────────────────────────────┐
//	│  UsersConnectionRepository → ConnectionRepository    │
//	│  (global, lookup inverso)    (por usuario local)     │
//	└─────────────────────────────────────────────────────┘
//	                        │  codec de credenciales
//	                        ▼
//	┌─────────────────────────────────────────────────────┐
//	│        ConnectionStore (registros planos)            │
//	└─────────────────────────────────────────────────────┘
//	         ┌──────────┬───┴──────┬──────────┐
//	         ▼          ▼          ▼          ▼
//	        pg        mysql       bolt      memory
//
// Las implementaciones de los repositorios viven en internal/store y los
// engines en internal/store/adapters/.
//
// Convenciones:
//   - Context siempre es el primer parámetro
//   - Errores de dominio están en errors.go
package repository
