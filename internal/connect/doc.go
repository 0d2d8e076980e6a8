// Package connect modela la conexión entre un usuario local y una cuenta en
// un provider externo (Facebook, Twitter, GitHub, ...).
//
// Una Connection envuelve una credencial viva (token OAuth1 o grant OAuth2) y
// un cliente del API del provider construido a partir de ella. Las
// Connection se crean con un ConnectionFactory, ya sea desde una credencial
// recién obtenida o desde un ConnectionData persistido. Los factories se
// registran en un Registry, que se puede consultar por providerID o por el
// tipo Go del API.
package connect
