// Package container defines the domain types shared by every berth layer:
// the container-number rule, the closed set of operations, the extracted
// container data, the sanitized record returned to callers, and the raw and
// structured persistence shapes with their store interfaces.
package container
