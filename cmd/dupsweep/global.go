package main

// <global-variables>
//   <subset purpose="used for passing values between 'cobra' methods">
var w Output
var log Output
var exitCode int
var cmdError error

//   </subset>
// </global-variables>
