// Package crawler defines the types and collaborator interfaces shared by the
// crawl pipeline that feeds pages into the login-wall detector.
package crawler
