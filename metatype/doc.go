// Package metatype implements the Metatype component (spec §4.F): XML
// schemas that describe a PID's configuration attributes so tooling can
// render a form for it and a framework can validate a value before it
// ever reaches configadmin.
//
// # Document shape
//
// A metatype XML document declares one or more OCDs and binds each to a
// PID (or factory PID) via a Designate:
//
//	<MetaData localization="OSGI-INF/l10n/bundle">
//	  <OCD id="com.example.thing" name="%thing.name">
//	    <AD id="timeout" type="Integer" min="1" max="300" default="30"/>
//	  </OCD>
//	  <Designate pid="com.example.thing">
//	    <Object ocdref="com.example.thing"/>
//	  </Designate>
//	</MetaData>
//
// # Loading
//
//	reg := metatype.NewRegistry()
//	bundle, _ := metatype.LoadBundle(bundleFile)
//	reg.LoadPlugin("com.example.plugin", bundle, xmlFile)
//	ocd, ok := reg.ObjectClassDefinitionFor("com.example.thing")
package metatype
