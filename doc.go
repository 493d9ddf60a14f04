/*
Package regdns reconciles a single DNS record hosted by a WHMCS-style registrar API.

Usage will always start with [regdns.New],
which returns a [Client] for one domain.
New requires the domain that holds the record and a [Registrar] implementation, usually [UsingRegistrarAPI].
Additional client configuration options are listed in the docs for New.

The registrar only supports replacing the whole record set of a domain,
so every run fetches the full set, changes one record in memory with [Reconcile], and submits the full set back.
*/
package regdns
