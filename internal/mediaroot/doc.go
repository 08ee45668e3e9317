// Package mediaroot owns the rules that tie relative path keys to the media
// root on disk.
//
// Every path handed to CamReview by a client is a POSIX, root-relative key.
// Root resolves those keys to filesystem paths and rejects any key that
// escapes the root. The package also fixes the reserved artifact layout under
// .camreview and the naming of action destination folders so scanning,
// moving, and artifact generation agree on one set of names.
package mediaroot
