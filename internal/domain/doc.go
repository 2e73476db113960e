// Package domain contains the core business entities, value objects, and
// domain logic of the media pipeline: the user-owned entities (dreams and
// manifestations) that receive generated media, and the queue tasks that
// drive generation to completion. It is independent of any specific
// infrastructure or delivery mechanism.
package domain
