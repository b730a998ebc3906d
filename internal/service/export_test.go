package service

// ThumbKey exposes the thumbnail cache key to tests.
var ThumbKey = thumbKey
