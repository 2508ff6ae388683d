// Package importer reads the tweet file of an official Twitter account
// export (data/tweets.js, or data/tweet.js in older exports) so its posts
// can be merged into an archive.
package importer
