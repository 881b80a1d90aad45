// Package campaign implements campaign lifecycle management.
//
// The service layer owns the status state machine (draft → scheduled/sending
// → sent/failed), the pre-flight checks for dispatch, and the statistics
// queries. It depends on repository interfaces defined in this package and
// should never import from api/.
//
// Repository implementations live in repository/postgres/.
package campaign
