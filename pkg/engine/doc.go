// Package engine is a small line-oriented style checker.
//
// A Checker is configured from a tree of modules, usually parsed from an
// XML document:
//
//	<module name="Checker">
//	    <property name="severity" value="warning"/>
//	    <module name="LineLength">
//	        <property name="max" value="${max.line}" default="120"/>
//	    </module>
//	</module>
//
// Module names are resolved through a Loader. The default loader knows
// the built-in checks; child loaders add rule definitions read from
// classpath entries. Processing polls the context between every check so
// a canceled scan stops promptly without reporting an error.
package engine
